package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateRequestID(t *testing.T) {
	id1 := GenerateRequestID()
	id2 := GenerateRequestID()

	assert.NotEmpty(t, id1)
	assert.NotEqual(t, id1, id2, "Request IDs should be unique")
	assert.Len(t, id1, 36, "Request ID should be a UUID (36 characters)")
}

func TestConfigureLogger(t *testing.T) {
	tests := []struct {
		name      string
		config    LoggerConfig
		wantLevel logrus.Level
	}{
		{"debug level", LoggerConfig{Level: LogLevelDebug, Format: LogFormatText}, logrus.DebugLevel},
		{"info level", LoggerConfig{Level: LogLevelInfo, Format: LogFormatText}, logrus.InfoLevel},
		{"warn level", LoggerConfig{Level: LogLevelWarn, Format: LogFormatJSON}, logrus.WarnLevel},
		{"error level", LoggerConfig{Level: LogLevelError, Format: LogFormatJSON}, logrus.ErrorLevel},
		{"default level for invalid", LoggerConfig{Level: "invalid", Format: LogFormatText}, logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := ConfigureLogger(tt.config)
			require.NoError(t, err)
			assert.Equal(t, tt.wantLevel, logger.Level)
		})
	}
}

func TestConfigureLoggerWithFileOutput(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "test-log-*.log")
	require.NoError(t, err)
	defer os.Remove(tmpFile.Name())
	tmpFile.Close()

	logger, err := ConfigureLogger(LoggerConfig{
		Level:      LogLevelInfo,
		Format:     LogFormatText,
		OutputPath: tmpFile.Name(),
	})
	require.NoError(t, err)

	logger.Info("test message")

	content, err := os.ReadFile(tmpFile.Name())
	require.NoError(t, err)
	assert.Contains(t, string(content), "test message")
}

func TestContextWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "test-request-id")
	assert.Equal(t, "test-request-id", GetRequestID(ctx))

	assert.Empty(t, GetRequestID(context.Background()))
}

func TestContextWithLogger(t *testing.T) {
	logger := logrus.New().WithField("test", true)

	ctx := WithLogger(context.Background(), logger)
	assert.Equal(t, logger, GetLogger(ctx))

	assert.NotNil(t, GetLogger(context.Background()), "missing logger falls back to default")
}

func TestLoggingMiddleware(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	var seenRequestID string

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenRequestID = GetRequestID(r.Context())

		assert.NotNil(t, GetLogger(r.Context()))
		w.WriteHeader(http.StatusAccepted)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/mcp", nil))

	assert.NotEmpty(t, seenRequestID)
	assert.Equal(t, seenRequestID, rec.Header().Get(RequestIDHeader))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestLoggingMiddlewarePropagatesExistingRequestID(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upstream-id", GetRequestID(r.Context()))
	}))

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set(RequestIDHeader, "upstream-id")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "upstream-id", rec.Header().Get(RequestIDHeader))
}

func TestResponseWriterCapturesStatusAndSize(t *testing.T) {
	rw := &responseWriter{ResponseWriter: httptest.NewRecorder(), statusCode: http.StatusOK}

	rw.WriteHeader(http.StatusCreated)
	assert.Equal(t, http.StatusCreated, rw.statusCode)

	n, err := rw.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, 5, rw.size)
}

func TestDefaultLogger(t *testing.T) {
	logger := DefaultLogger()
	assert.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.Level)
}
