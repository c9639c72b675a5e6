package dbutil

import (
	"encoding/json"
	"fmt"

	"github.com/arkade-os/relayd/internal/core/domain"
)

func SerializeEvent(event domain.Event) ([]byte, error) {
	return json.Marshal(event)
}

// DeserializeEvent decodes a json payload into the concrete event type
// identified by its Type field.
func DeserializeEvent(buf []byte) (domain.Event, error) {
	var eventType struct {
		Type domain.EventType
	}

	if err := json.Unmarshal(buf, &eventType); err != nil {
		return nil, err
	}

	switch eventType.Type {
	case domain.EventTypeTransactionCreated:
		return decode[domain.TransactionCreated](buf)
	case domain.EventTypeAttestationRecorded:
		return decode[domain.AttestationRecorded](buf)
	case domain.EventTypeTransactionCompleted:
		return decode[domain.TransactionCompleted](buf)
	case domain.EventTypeTransactionExpired:
		return decode[domain.TransactionExpired](buf)
	case domain.EventTypeTransactionFailed:
		return decode[domain.TransactionFailed](buf)
	case domain.EventTypeAssetListed:
		return decode[domain.AssetListed](buf)
	case domain.EventTypeAssetDelisted:
		return decode[domain.AssetDelisted](buf)
	case domain.EventTypeChainAdded:
		return decode[domain.ChainAdded](buf)
	case domain.EventTypeChainRemoved:
		return decode[domain.ChainRemoved](buf)
	case domain.EventTypeFeesCollected:
		return decode[domain.FeesCollected](buf)
	case domain.EventTypeSettingsUpdated:
		return decode[domain.SettingsUpdated](buf)
	case domain.EventTypeFeeCollectorUpdated:
		return decode[domain.FeeCollectorUpdated](buf)
	case domain.EventTypePauseToggled:
		return decode[domain.PauseToggled](buf)
	}

	return nil, fmt.Errorf("unknown event type %d", eventType.Type)
}

func decode[T domain.Event](buf []byte) (domain.Event, error) {
	var event T
	if err := json.Unmarshal(buf, &event); err != nil {
		return nil, err
	}
	return event, nil
}
