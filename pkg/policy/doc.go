// Package policy gates installs with Open Policy Agent (OPA) rules.
//
// Every install, including each dependency pulled in by a parent package,
// is evaluated before any side effect. A policy is a Rego module whose
// package defines a "deny" set; each element is either a message string or
// an object with "message" and optional "severity" fields.
//
// # Architecture
//
//  1. Engine - Compiles policies and evaluates an Input against them
//  2. Loader - Loads .rego and .json policies from files and directories
//  3. Built-in Policies - Channel allow-list and reserved names
//
// # Usage
//
//	eng, err := policy.NewEngine(logger, true)
//	if err != nil {
//	    return err
//	}
//	result, err := eng.Evaluate(ctx, &policy.Input{
//	    Package:         "samtools",
//	    Version:         "1.21",
//	    Provenance:      "remote",
//	    Channel:         "bioconda",
//	    AllowedChannels: []string{"conda-forge", "bioconda"},
//	})
//	if !result.Allowed {
//	    // refuse the install
//	}
//
// # Writing Policies
//
//	package modman.policies.pinned
//
//	import rego.v1
//
//	# severity: error
//	deny contains msg if {
//	    input.package == "python"
//	    not startswith(input.version, "3.")
//	    msg := "only python 3 may be installed"
//	}
//
// Violations with severity error or critical block the install; info and
// warning violations are reported as warnings.
package policy
