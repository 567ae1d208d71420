package audit

import (
	"bytes"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "vouch/pkg/domain"
)

func TestWriteCSV(t *testing.T) {
	entryID := id.EntryID(uuid.MustParse("11111111-1111-1111-1111-111111111111"))
	userID := id.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222"))
	actor := id.UserID(uuid.MustParse("33333333-3333-3333-3333-333333333333"))
	lagos := time.FixedZone("WAT", 3600)

	entries := []Entry{
		{
			ID:               entryID,
			UserID:           userID,
			VerificationType: id.VerificationDocument,
			Action:           ActionRejected,
			Status:           StatusSuccess,
			IPAddress:        "10.0.0.1",
			UserAgent:        "Mozilla/5.0 (X11, Linux)\nExtra",
			PerformedBy:      &actor,
			CreatedAt:        time.Date(2026, 1, 15, 10, 30, 0, 123456789, lagos),
		},
		{
			ID:               entryID,
			UserID:           userID,
			VerificationType: id.VerificationBadge,
			Action:           ActionAwarded,
			Status:           StatusSuccess,
			CreatedAt:        time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, entries))

	want := ExportHeader + "\n" +
		"11111111-1111-1111-1111-111111111111,22222222-2222-2222-2222-222222222222,document,rejected,success,10.0.0.1,Mozilla/5.0 (X11; Linux) Extra,33333333-3333-3333-3333-333333333333,2026-01-15T09:30:00.123Z\n" +
		"11111111-1111-1111-1111-111111111111,22222222-2222-2222-2222-222222222222,badge,awarded,success,,,,2026-01-15T09:00:00.000Z\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Equal(t, ExportHeader+"\n", buf.String())
}

func TestDeviceSummary(t *testing.T) {
	assert.Equal(t, "Unknown Device", DeviceSummary(""))

	chrome := DeviceSummary("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	assert.Contains(t, chrome, "Chrome")
	assert.Contains(t, chrome, " on ")

	firefox := DeviceSummary("Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0")
	assert.Contains(t, firefox, "Firefox")
	assert.Contains(t, firefox, "Linux")
}

func TestSnapshotAndActor(t *testing.T) {
	assert.Nil(t, Snapshot(nil))
	assert.JSONEq(t, `{"status":"verified"}`, string(Snapshot(map[string]string{"status": "verified"})))
	assert.Equal(t, "null", string(Snapshot(make(chan int))))

	assert.Nil(t, Actor(id.UserID{}))
	u := id.UserID(uuid.New())
	assert.Equal(t, u, *Actor(u))
}
