// Package reporting forwards server errors and panics to Rollbar.
package reporting

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"

	"github.com/noah-isme/courselab-api/pkg/config"
	"github.com/noah-isme/courselab-api/pkg/middleware/requestid"
)

// Reporter is a thin handle over the global rollbar client.
type Reporter struct {
	enabled bool
	logger  *zap.Logger
}

// New configures rollbar. Without a token the reporter only logs.
func New(cfg *config.Config, logger *zap.Logger) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	enabled := cfg.Rollbar.Token != ""
	if enabled {
		host, _ := os.Hostname()
		rollbar.SetToken(cfg.Rollbar.Token)
		rollbar.SetEnvironment(cfg.Env)
		rollbar.SetCodeVersion(cfg.Version)
		rollbar.SetServerHost(host)
	}
	rollbar.SetEnabled(enabled)
	return &Reporter{enabled: enabled, logger: logger}
}

// Enabled reports whether events leave the process.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// RequestError reports err raised while serving req.
func (r *Reporter) RequestError(req *http.Request, err error, extras map[string]interface{}) {
	if r == nil || err == nil {
		return
	}
	r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
	if r.enabled {
		rollbar.RequestErrorWithExtras(rollbar.ERR, req, err, extras)
	}
}

// Close flushes pending events.
func (r *Reporter) Close() {
	if r.Enabled() {
		rollbar.Close()
	}
}

// Recovery turns panics into 500 responses and reports them.
func (r *Reporter) Recovery(onPanic func(c *gin.Context)) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		err, ok := recovered.(error)
		if !ok {
			err = fmt.Errorf("panic: %v", recovered)
		}
		if r != nil {
			r.logger.Error("panic recovered", zap.Error(err), zap.String("request_id", requestid.Value(c)))
			if r.enabled {
				rollbar.RequestErrorWithExtras(rollbar.CRIT, c.Request, err, map[string]interface{}{"request_id": requestid.Value(c)})
			}
		}
		if onPanic != nil {
			onPanic(c)
			c.Abort()
			return
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// Middleware reports errors attached to 5xx responses via c.Error.
func (r *Reporter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Writer.Status() < http.StatusInternalServerError || len(c.Errors) == 0 {
			return
		}
		extras := map[string]interface{}{
			"request_id": requestid.Value(c),
			"route":      c.FullPath(),
		}
		r.RequestError(c.Request, c.Errors.Last().Err, extras)
	}
}
