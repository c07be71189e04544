package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeActionDecision(t *testing.T) {
	var payload DecisionPayload
	err := decodeAction(ActionApproveRequest, map[string]any{
		"action":     "approve_request",
		"request_id": float64(7),
	}, &payload)
	require.NoError(t, err)
	assert.Equal(t, int64(7), payload.RequestID)
}

func TestDecodeActionRejectsMissingFields(t *testing.T) {
	var payload DecisionPayload
	err := decodeAction(ActionApproveRequest, map[string]any{
		"action": "approve_request",
	}, &payload)
	assert.Error(t, err)
}

func TestDecodeActionRejectsWrongTypes(t *testing.T) {
	var payload DecisionPayload
	err := decodeAction(ActionApproveRequest, map[string]any{
		"action":     "approve_request",
		"request_id": "seven",
	}, &payload)
	assert.Error(t, err)
}

func TestDecodeActionRejectsNonPositiveID(t *testing.T) {
	var payload AcceptInstallPayload
	err := decodeAction(ActionAcceptInstall, map[string]any{
		"action":     "accept_install",
		"request_id": float64(0),
	}, &payload)
	assert.Error(t, err)
}

func TestDecodeActionUnknownAction(t *testing.T) {
	var payload DecisionPayload
	err := decodeAction("make_coffee", map[string]any{"action": "make_coffee"}, &payload)
	assert.Error(t, err)
}

func TestDecodeActionSelection(t *testing.T) {
	var payload SelectSoftwarePayload
	err := decodeAction(ActionSelectSoftware, map[string]any{
		"action":    "select_software",
		"selection": `{"software":"Slack","version":"4.35"}`,
	}, &payload)
	require.NoError(t, err)
	assert.Equal(t, `{"software":"Slack","version":"4.35"}`, payload.Selection)
}

func TestWantsInstall(t *testing.T) {
	assert.True(t, wantsInstall("Please INSTALL chrome"))
	assert.True(t, wantsInstall("i need some software"))
	assert.True(t, wantsInstall("can you setup zoom"))
	assert.True(t, wantsInstall("Add Program please"))
	assert.False(t, wantsInstall("good morning"))
	assert.False(t, wantsInstall(""))
}
