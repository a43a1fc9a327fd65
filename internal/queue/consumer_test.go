package queue

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatLineUser(t *testing.T) {
	body, _ := json.Marshal(UserNotificationEvent{
		UserID: 7, Title: "Booking created", Message: "Seat S05", Category: "booking", RequestedAt: "2025-03-01T10:00:00Z",
	})
	line, err := FormatLine(UserQueue, body)
	require.NoError(t, err)
	assert.Equal(t, "[2025-03-01T10:00:00Z] USER user_id=7 | category=booking | title=\"Booking created\" | message=\"Seat S05\"\n", line)
}

func TestFormatLineBroadcast(t *testing.T) {
	body, _ := json.Marshal(UserNotificationEvent{Broadcast: true, Title: "Closed", Category: "general"})
	line, err := FormatLine(UserQueue, body)
	require.NoError(t, err)
	assert.Contains(t, line, "USER broadcast |")
}

func TestFormatLineAdmin(t *testing.T) {
	body, _ := json.Marshal(AdminNotificationEvent{
		Title: "Booking expiring", Message: "m", Category: "booking_expiry", RelatedID: "10", Priority: "urgent",
	})
	line, err := FormatLine(AdminQueue, body)
	require.NoError(t, err)
	assert.Contains(t, line, "ADMIN URGENT | category=booking_expiry | related_id=10")
}

func TestFormatLineErrors(t *testing.T) {
	_, err := FormatLine("other", []byte(`{}`))
	assert.Error(t, err)
	_, err = FormatLine(UserQueue, []byte(`not json`))
	assert.Error(t, err)
}

func TestSinkAppendLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "notifications.log")
	s := &Sink{LogPath: path}
	require.NoError(t, s.appendLine("one\n"))
	require.NoError(t, s.appendLine("two\n"))

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(b))
}
