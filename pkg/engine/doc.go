// Package engine resolves, installs and removes environment-module packages.
//
// # Overview
//
// The Orchestrator drives a single install request through these states:
//
//  1. Requested - an unknown name triggers one remote lookup, persisted at once
//  2. Resolved - the version request is matched against the known versions
//  3. ShortCircuit - an existing module file means the package is installed
//  4. DependenciesInstalling - local packages install their dependencies first
//  5. PolicyCheck - the optional policy gate may reject the target
//  6. Installing - the provenance-specific installer runs as an external step
//  7. PostInstall - Tcl and Lua module files are rendered from templates
//  8. Installed or Failed - a failure removes everything the attempt created
//
// Installed state is read from disk: the module file at
// <moduleRoot>/<name>/<version> is the single source of truth. The optional
// ledger records every transition for diagnostics only.
//
// # Dependency Resolution
//
// Dependencies come from "#DEPENDENCY:name/token" lines of local build
// scripts. A token ending in "*" selects the highest known version with the
// given prefix. ResolveOrder computes an order where every dependency
// precedes its dependents and reports cycles as resolution errors:
//
//	order, err := engine.ResolveOrder([]string{"foo"}, map[string][]string{
//	    "foo": {"bar"},
//	    "bar": {"baz"},
//	})
//	// order == [baz bar foo]
//
// # Errors
//
// Every failure surfaced by the orchestrator is an *EngineError carrying one
// of the classes not_found, resolution, external_tool, network, validation,
// dependency or interrupted. Use the IsX predicates or errors.As to inspect
// them.
package engine
