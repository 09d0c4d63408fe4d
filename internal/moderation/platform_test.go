package moderation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/bwmarrin/discordgo"
)

func TestSessionPlatformHonoursContext(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	previous := discordgo.EndpointChannels
	discordgo.EndpointChannels = server.URL + "/channels/"
	defer func() { discordgo.EndpointChannels = previous }()

	session, err := discordgo.New("Bot token")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	platform := NewSessionPlatform(session)

	if err := platform.DeleteMessage(context.Background(), "200", "m1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected one request, got %d", hits.Load())
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := platform.DeleteMessage(ctx, "200", "m2"); err == nil {
		t.Fatalf("expected a cancelled context to abort the delete")
	}
	if err := platform.SendEmbed(ctx, "900", &discordgo.MessageEmbed{Title: "x"}); err == nil {
		t.Fatalf("expected a cancelled context to abort the send")
	}
	if hits.Load() != 1 {
		t.Fatalf("cancelled calls must not reach the server, got %d requests", hits.Load())
	}
}
