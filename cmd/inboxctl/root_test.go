package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/roomchat-backend/internal/inbox"
)

func TestTokenCommandRoundTripsViewer(t *testing.T) {
	userID := uuid.New()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--secret", "k", "--user", userID.String(), "--ttl", "5m"})
	require.NoError(t, cmd.Execute())

	opts := &RootOptions{Token: strings.TrimSpace(out.String())}
	viewer, err := opts.viewer()
	require.NoError(t, err)
	assert.Equal(t, userID, viewer)
}

func TestTokenCommandNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "")
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"token", "--user", uuid.NewString()})
	assert.Error(t, cmd.Execute())
}

func TestClientRequiresToken(t *testing.T) {
	_, err := (&RootOptions{Server: "http://localhost"}).client()
	assert.Error(t, err)
}

func TestRenderUsesRoleAwareTitles(t *testing.T) {
	owner, inquirer := uuid.New(), uuid.New()
	th := inbox.Thread{
		ID:            uuid.New(),
		ListingTitle:  "Room A",
		OwnerID:       owner,
		OwnerName:     "Olive",
		InquirerID:    inquirer,
		InquirerName:  "Ivan",
		LastMessageAt: time.Unix(100, 0),
		UnreadCount:   2,
	}
	var buf bytes.Buffer
	render(&buf, inquirer, []inbox.Thread{th})
	assert.Contains(t, buf.String(), "Room A")
	assert.Contains(t, buf.String(), "From: Olive")

	buf.Reset()
	render(&buf, owner, []inbox.Thread{th})
	assert.Contains(t, buf.String(), "Ivan")
	assert.Contains(t, buf.String(), "Listing: Room A")
}
