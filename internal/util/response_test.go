package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestHTTPStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{ErrBannedFromContest, http.StatusForbidden},
		{ErrAlreadyInContest, http.StatusConflict},
		{ErrContestNotOngoing, http.StatusBadRequest},
		{ErrNotInContest, http.StatusNotFound},
		{fmt.Errorf("join: %w", ErrContestInaccessible), http.StatusNotFound},
		{&PrivateContestError{Name: "x"}, http.StatusForbidden},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HTTPStatusFromError(tc.err), tc.err.Error())
	}
}

func TestHandleErrorPrivatePayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	HandleError(c, fmt.Errorf("join: %w", &PrivateContestError{
		Name:                  "Spring Cup",
		IsOrganizationPrivate: true,
		Organizations:         []string{"Math Club"},
	}))

	require.Equal(t, http.StatusForbidden, w.Code)
	var resp struct {
		Code int                 `json:"code"`
		Data PrivateContestError `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Spring Cup", resp.Data.Name)
	assert.Equal(t, []string{"Math Club"}, resp.Data.Organizations)
}

func TestTranslateDBError(t *testing.T) {
	assert.ErrorIs(t, TranslateDBError(gorm.ErrRecordNotFound), ErrNotFound)
	assert.ErrorIs(t, TranslateDBError(gorm.ErrDuplicatedKey), ErrConflict)
	assert.True(t, IsDuplicateKey(errors.New("UNIQUE constraint failed: contest_participations.contest_id")))
	assert.Nil(t, TranslateDBError(nil))
}
