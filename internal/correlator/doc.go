// Package correlator binds externally visible UUIDs to native interaction
// objects so that the scripting side can refer to them across the bridge.
//
// # Purpose
//
// The scripting runtime cannot hold native references. When a native module
// starts a trackable operation (a wallet workflow, a pending signature
// request) it registers the operation here and hands the returned UUID back
// across the bridge. Later calls use that UUID to look the operation up,
// dispatch callbacks for it, or remove it.
//
// # Lifecycle
//
// Every handle follows one state machine:
//
//		Active ──► Completed ──► Removed
//		   │                       ▲
//		   └───────────────────────┘
//
//	  - **Active:** set by Register.
//	  - **Completed:** set by the owning module through Complete. The handle
//	    stays reachable until it is removed or swept by the janitor.
//	  - **Removed:** terminal. Set by Remove, Sweep or Close. The handle is
//	    evicted from the store and its Interaction is released exactly once.
//
// Removed always wins over a late Complete; a removed handle is never
// resurrected.
//
// # Concurrency Model
//
// The store keys handles in a sync.Map, so register/lookup/remove for
// different IDs never contend. Each
// handle carries its own mutex guarding its status, and eviction goes through
// sync.Map.LoadAndDelete so two concurrent Remove calls release the
// interaction once.
//
// Absence is never an error. Lookup reports "not found" with a boolean and
// Remove of an unknown ID is a silent no-op.
package correlator
