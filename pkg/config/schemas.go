package config

import (
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// configSchema constrains CUE configuration files. Definitions are closed,
// so misspelled keys are rejected.
const configSchema = `
#Duration: string & =~"^([0-9]+(\\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$"

#Config: {
	root?:       string
	micromamba?: string
	channels?: [...string & !=""]

	paths?: {
		catalog?:          string
		build_scripts?:    string
		apps?:             string
		ref?:              string
		apps_modulefiles?: string
		ref_modulefiles?:  string
		conda?:            string
		bin?:              string
		template_dir?:     string & !~"/"
	}

	remote?: {
		page_base_url?: string & =~"^https?://"
		retries?:       int & >=1 & <=10
		retry_delay?:   #Duration
		timeout?:       #Duration
		user_agent?:    string
	}

	ledger?: {
		enabled?: bool
		path?:    string
	}

	policy?: {
		enabled?: bool
		builtin?: bool
		paths?: [...string]
	}

	telemetry?: {
		service_name?: string
		logging?: {
			level?:       "trace" | "debug" | "info" | "warn" | "error"
			format?:      "console" | "json"
			output?:      string
			caller?:      bool
			time_format?: string
		}
		tracing?: {
			exporter?:      "none" | "stdout" | "otlp"
			endpoint?:      string
			sampling_rate?: number & >=0 & <=1
			insecure?:      bool
			headers?: {[string]: string}
		}
		metrics?: {
			enabled?:   bool
			namespace?: string
			path?:      string
			textfile?:  string
			buckets?: [...number]
		}
	}
}
`

// SchemaRegistry compiles the configuration schema once per process.
type SchemaRegistry struct {
	ctx  *cue.Context
	once sync.Once
	def  cue.Value
	err  error
}

// NewSchemaRegistry creates a registry bound to ctx.
func NewSchemaRegistry(ctx *cue.Context) *SchemaRegistry {
	if ctx == nil {
		ctx = cuecontext.New()
	}
	return &SchemaRegistry{ctx: ctx}
}

// Config returns the #Config definition.
func (sr *SchemaRegistry) Config() (cue.Value, error) {
	sr.once.Do(func() {
		val := sr.ctx.CompileString(configSchema, cue.Filename("schema.cue"))
		if err := val.Err(); err != nil {
			sr.err = fmt.Errorf("failed to compile config schema: %w", err)
			return
		}
		sr.def = val.LookupPath(cue.ParsePath("#Config"))
		if err := sr.def.Err(); err != nil {
			sr.err = fmt.Errorf("failed to look up #Config: %w", err)
		}
	})
	return sr.def, sr.err
}
