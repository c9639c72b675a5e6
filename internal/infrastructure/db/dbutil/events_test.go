package dbutil_test

import (
	"testing"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/infrastructure/db/dbutil"
	"github.com/stretchr/testify/require"
)

func TestEventSerialization(t *testing.T) {
	tx := domain.NewOutboundTransaction(1, "alice", "bob", "0xusdc", 5000, 5, 137, 100, 3600)
	_, err := tx.Attest("r1", 101)
	require.NoError(t, err)
	require.NoError(t, tx.Fail("aborted", 102))

	events := append([]domain.Event{}, tx.Events()...)
	events = append(events,
		domain.ChainAdded{
			RegistryEvent: domain.RegistryEvent{Id: "137", Type: domain.EventTypeChainAdded},
			Name:          "polygon",
			ChainId:       137,
		},
		domain.PauseToggled{
			AdminEvent: domain.AdminEvent{Id: "settings", Type: domain.EventTypePauseToggled},
			Paused:     true,
			Caller:     "guardian",
		},
	)

	for _, event := range events {
		buf, err := dbutil.SerializeEvent(event)
		require.NoError(t, err)

		decoded, err := dbutil.DeserializeEvent(buf)
		require.NoError(t, err)
		require.Equal(t, event, decoded)
		require.Equal(t, event.GetTopic(), decoded.GetTopic())
	}

	_, err = dbutil.DeserializeEvent([]byte(`{"Type":200}`))
	require.Error(t, err)
	_, err = dbutil.DeserializeEvent([]byte(`not json`))
	require.Error(t, err)
}
