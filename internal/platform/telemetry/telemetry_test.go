// File: internal/platform/telemetry/telemetry_test.go
package telemetry

import (
	"context"
	"testing"

	"wasa_admin_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSetup_NoEndpointIsNoop(t *testing.T) {
	shutdown := Setup(&config.Config{OTELServiceName: "test"}, zap.NewNop())
	assert.NoError(t, shutdown(context.Background()))
}
