package policy

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		allowedChannelsPolicy(),
		reservedNamesPolicy(),
		resolvedVersionPolicy(),
	}
}

// allowedChannelsPolicy restricts remote installs to the configured channels.
func allowedChannelsPolicy() Policy {
	return Policy{
		Name:        "allowed-channels",
		Description: "Remote packages must come from one of the configured channels",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"remote", "supply-chain"},
		Rego: `package modman.policies.channels

import rego.v1

deny contains violation if {
	input.provenance == "remote"
	count(input.allowed_channels) > 0
	not input.channel in input.allowed_channels
	violation := {
		"message": sprintf("channel '%s' is not one of the allowed channels %v", [input.channel, input.allowed_channels]),
		"severity": "error",
	}
}

deny contains violation if {
	input.provenance == "remote"
	input.channel == ""
	violation := {
		"message": sprintf("remote package '%s' has no channel", [input.package]),
		"severity": "error",
	}
}
`,
	}
}

// reservedNamesPolicy refuses names the build-script scanner treats as
// templates or helper data.
func reservedNamesPolicy() Policy {
	return Policy{
		Name:        "reserved-names",
		Description: "Template and helper-data names cannot be installed",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming"},
		Rego: `package modman.policies.reserved

import rego.v1

reserved(name) if name == "0-template"

reserved(name) if startswith(name, "template")

reserved(name) if endswith(name, "_data")

deny contains violation if {
	reserved(input.package)
	violation := {
		"message": sprintf("package name '%s' is reserved", [input.package]),
		"severity": "error",
	}
}
`,
	}
}

// resolvedVersionPolicy requires a concrete version at install time.
func resolvedVersionPolicy() Policy {
	return Policy{
		Name:        "resolved-version",
		Description: "Installs must target a concrete version",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"versions"},
		Rego: `package modman.policies.versions

import rego.v1

deny contains msg if {
	input.version == ""
	msg := sprintf("no version selected for '%s'", [input.package])
}

deny contains msg if {
	contains(input.version, "*")
	msg := sprintf("version '%s' of '%s' is still a wildcard", [input.version, input.package])
}
`,
	}
}
