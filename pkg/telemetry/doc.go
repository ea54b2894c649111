// Package telemetry provides logging, metrics and tracing for modman.
//
// Logging uses zerolog and writes to stderr so that command output on stdout
// stays machine readable. Metrics live in a private Prometheus registry and
// are either served over HTTP by long-running commands or written to a
// node-exporter textfile at exit. Tracing is disabled unless an exporter is
// configured.
//
// Example:
//
//	tel, err := telemetry.New(telemetry.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer tel.Shutdown(ctx)
//
//	log := tel.Logger.Component("installer")
//	log.Info().Str("package", "samtools").Msg("Installing")
package telemetry
