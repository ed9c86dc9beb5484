package api

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ngmaloney/weatherd/internal/werrors"
)

func TestWriteErrorMapsValidation(t *testing.T) {
	w := httptest.NewRecorder()
	err := werrors.New(werrors.Validation, "bad_input", "lat is required")
	writeError(w, zap.NewNop(), err, "fallback")

	assert.Equal(t, 400, w.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "bad_input", env.Error)
	assert.Equal(t, "lat is required", env.Message)
}

func TestWriteErrorMapsBreakerOpenTo503(t *testing.T) {
	w := httptest.NewRecorder()
	err := werrors.New(werrors.BreakerOpen, "breaker_open", "")
	writeError(w, zap.NewNop(), err, "fallback")
	assert.Equal(t, 503, w.Code)
}

func TestWriteErrorMapsStorageFailureToGenericMessage(t *testing.T) {
	w := httptest.NewRecorder()
	err := werrors.Wrap(werrors.StorageFailure, "storage_failed", errors.New("pq: duplicate key value violates constraint"))
	writeError(w, zap.NewNop(), err, "point_summary_failed")

	assert.Equal(t, 500, w.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "point_summary_failed", env.Error)
	assert.Empty(t, env.Message)
	assert.NotContains(t, w.Body.String(), "duplicate key")
}

func TestWriteErrorUnexpectedPlainErrorFallsBackTo500(t *testing.T) {
	w := httptest.NewRecorder()
	writeError(w, zap.NewNop(), errors.New("boom"), "fallback_token")

	assert.Equal(t, 500, w.Code)
	var env errorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	assert.Equal(t, "fallback_token", env.Error)
}

func TestBadRequestAndNotFound(t *testing.T) {
	w := httptest.NewRecorder()
	badRequest(w, "bbox_required", "bbox must be set")
	assert.Equal(t, 400, w.Code)

	w = httptest.NewRecorder()
	notFound(w, "tracked_point_not_found")
	assert.Equal(t, 404, w.Code)
}
