// Package logging is memvec's zap setup.
//
// Logger methods take a context and add its trace_id, span_id and
// request.id to the entry. Below Debug there is a Trace level (-2) for
// per-document detail. Output goes to stdout, to the OTEL log bridge, or to
// both. Info and lower levels are sampled per message; errors never are.
//
//	cfg, err := logging.FromAppConfig(appCfg.Logging)
//	if err != nil {
//		return err
//	}
//	logger, err := logging.NewLogger(cfg, tel.LoggerProvider())
//	if err != nil {
//		return err
//	}
//	defer logger.Sync()
//	logger.Info(ctx, "search completed", zap.Int("results", n))
//
// Libraries that want a plain *zap.Logger get logger.Underlying().
// Tests use NewTestLogger and its Assert helpers.
package logging
