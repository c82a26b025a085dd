// Package registry provides the capability table that the bridge exposes to
// the scripting runtime.
//
// Each native Module registers its methods as strongly typed Go handlers
// (see Handler). The registry derives a cty type for every handler's input
// and output at registration time, so argument shape mismatches and
// unsupported Go types surface as a startup validation error rather than at
// call time. Invoke decodes a JSON argument object against the method's input
// type, calls the handler, and encodes the result back to JSON.
package registry
