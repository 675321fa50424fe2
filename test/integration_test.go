package test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"realtime-hub/domain"
	"realtime-hub/domain/event"
	"realtime-hub/mocks"
	"realtime-hub/repositories"
	"realtime-hub/runtime"
	"realtime-hub/runtime/workers"
	"realtime-hub/services"
	"realtime-hub/session"

	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func Test_Scenario(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := require.New(t)
	// Reduced to 16 Mo for testing
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).
		WithLoggingLevel(badger.ERROR).
		WithValueLogFileSize(16 << 20))
	req.NoError(err)

	// 1. Channel closed once the receiver has left
	left := make(chan struct{})
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	listener := mocks.NewMockPresenceListener(ctrl)
	listener.EXPECT().OnJoin(gomock.Any(), gomock.Any(), gomock.Any()).Times(2)
	listener.EXPECT().OnLeave(gomock.Any(), domain.UserID(2)).
		Do(func(context.Context, domain.UserID) {
			close(left)
		}).
		Times(1)

	registry := runtime.NewRegistry(log).Notify(listener)
	router := runtime.NewRouter(log, registry)
	repository := repositories.NewBadgerMessageRepository(db, log, lo.ToPtr(100))
	chatService := services.NewChatService(log, repository, router, registry, 500)

	stats := workers.NewStatsWorker(log, registry, 20*time.Millisecond)
	supervisor := workers.NewSupervisor(log, 200*time.Millisecond)
	supervisor.Add(stats)
	stopped := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(stopped)
	}()

	// Clean everything at the end of the test
	t.Cleanup(func() {
		cancel()
		<-stopped
		db.Close()
	})

	alice := session.NewOutbound(1, 16)
	bob := session.NewOutbound(2, 16)
	registry.Add(ctx, 1, alice)
	registry.Add(ctx, 2, bob)

	content := "this message will self destruct in 5 seconds"

	// When a message is posted
	saved, delivered, err := chatService.SendMessage(ctx, 1, 2, content)
	req.NoError(err)
	req.True(delivered)

	// Then it reached the receiver's outbound queue
	select {
	case e := <-bob.Events():
		req.Equal(event.Chat{To: 2, Content: content}, e)
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: message has never reached the receiver")
	}

	// And the repository
	history, err := chatService.History(ctx, 2, 1)
	req.NoError(err)
	req.Len(history, 1)
	req.Equal(saved.ID, history[0].ID)

	// And the stats worker sees both users
	req.Eventually(func() bool { return stats.Latest().Online == 2 }, 2*time.Second, 10*time.Millisecond)

	// When the receiver leaves, a later message is stored but not delivered
	req.True(registry.RemoveHandle(ctx, 2, bob.ID()))
	select {
	case <-left:
	case <-time.After(2 * time.Second):
		req.Fail("Timeout: leave has never been announced")
	}
	_, delivered, err = chatService.SendMessage(ctx, 1, 2, "are you there?")
	req.NoError(err)
	req.False(delivered)

	history, err = chatService.History(ctx, 1, 2)
	req.NoError(err)
	req.Len(history, 2)
}
