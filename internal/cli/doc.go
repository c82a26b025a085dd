// Package cli is the command-line surface of the bridge: serve, modules,
// call and remove. It parses flags and environment through cobra and viper
// and leaves the work to the app and bridgeclient packages.
package cli
