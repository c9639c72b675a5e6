package alertsmanager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	"github.com/shopspring/decimal"
)

const (
	serviceName = "relayd"
	severity    = "info"

	maxRetries = 5
)

type Alert struct {
	Labels      map[string]string `json:"labels"`
	Annotations map[string]string `json:"annotations"`
	StartsAt    time.Time         `json:"startsAt"`
}

type service struct {
	baseUrl    string
	httpClient *http.Client
}

func NewService(alertManagerURL string) ports.Alerts {
	return &service{
		baseUrl: alertManagerURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *service) Publish(ctx context.Context, topic ports.Topic, message any) error {
	labels := map[string]string{
		"alertname": string(topic),
		"service":   serviceName,
		"severity":  severity,
	}

	desc := ""
	annotations := map[string]string{}
	switch topic {
	case ports.FeesCollected:
		annotations["firing_title"] = "💰 Fees Collected"
		m, ok := message.(ports.FeesCollectedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatFeesCollectedAlert(m)
		labels["asset"] = m.Asset
	case ports.ParameterUpdated:
		annotations["firing_title"] = "⚙️ Parameter Updated"
		m, ok := message.(ports.ParameterUpdatedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatParameterUpdatedAlert(m)
		labels["parameter"] = m.Name
	case ports.TransactionAborted:
		annotations["firing_title"] = "🛑 Transaction Aborted"
		m, ok := message.(ports.TransactionAbortedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatTransactionAbortedAlert(m)
		labels["tx_id"] = fmt.Sprintf("%d", m.TxId)
		labels["severity"] = "warning"
	case ports.ReleaseFailed:
		annotations["firing_title"] = "🚨 Release Failed"
		m, ok := message.(ports.ReleaseFailedAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatReleaseFailedAlert(m)
		labels["tx_id"] = fmt.Sprintf("%d", m.TxId)
		labels["severity"] = "critical"
	case ports.RelayPaused, ports.RelayUnpaused:
		annotations["firing_title"] = fmt.Sprintf("⏯️ %s", topic)
		m, ok := message.(ports.PauseAlert)
		if !ok {
			return fmt.Errorf("invalid message type: %T", message)
		}
		desc = formatGenericAlert(map[string]any{"caller": m.Caller})
		labels["severity"] = "warning"
	default:
		annotations["firing_title"] = fmt.Sprintf("🔔 %s", topic)
		desc = formatGenericAlert(map[string]any{"event": message})
	}

	annotations["description"] = desc
	alert := Alert{
		Labels:      labels,
		Annotations: annotations,
		StartsAt:    time.Now(),
	}

	if err := s.sendAlert(ctx, alert); err != nil {
		return fmt.Errorf("failed to send alert to AlertManager: %w", err)
	}

	return nil
}

func (s *service) sendAlert(ctx context.Context, alerts Alert) error {
	payload, err := json.Marshal([]Alert{alerts})
	if err != nil {
		return fmt.Errorf("failed to marshal alerts: %w", err)
	}

	baseDelay := 100 * time.Millisecond

	for attempt := range maxRetries {
		req, err := http.NewRequestWithContext(ctx, "POST", s.baseUrl, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			if attempt < maxRetries-1 {
				// exponential: 100ms, 200ms, 400ms, 800ms
				delay := baseDelay * time.Duration(1<<uint(attempt))

				select {
				case <-time.After(delay):
					continue
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return fmt.Errorf("failed to send alert after %d attempts: %w", maxRetries, err)
		}
		_ = resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}

		// Retry on 5xx only
		if resp.StatusCode >= 500 && attempt < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<uint(attempt))

			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		return fmt.Errorf(
			"failed to send alert to AlertManager with status %d after %d attempts",
			resp.StatusCode, attempt+1,
		)
	}

	return fmt.Errorf("failed to send alert after %d attempts", maxRetries)
}

func formatFeesCollectedAlert(data ports.FeesCollectedAlert) string {
	asset := data.Asset
	if len(data.Symbol) > 0 {
		asset = fmt.Sprintf("%s (%s)", data.Symbol, data.Asset)
	}
	lines := []string{
		fmt.Sprintf("*Asset:* `%s`", asset),
		fmt.Sprintf("• Amount: %s", formatAmount(data.Amount)),
		fmt.Sprintf("• Recipient: %s", data.Recipient),
		fmt.Sprintf("• Requested by: %s", data.Caller),
	}
	return strings.Join(lines, "\n")
}

func formatParameterUpdatedAlert(data ports.ParameterUpdatedAlert) string {
	oldValue, newValue := formatAmount(data.OldValue), formatAmount(data.NewValue)
	switch data.Name {
	case domain.ParamFeeBasisPoints:
		oldValue, newValue = formatBasisPoints(data.OldValue), formatBasisPoints(data.NewValue)
	case domain.ParamTransactionTimeout:
		oldValue = time.Duration(data.OldValue * uint64(time.Second)).String()
		newValue = time.Duration(data.NewValue * uint64(time.Second)).String()
	}

	lines := []string{
		fmt.Sprintf("*Parameter:* `%s`", data.Name),
		fmt.Sprintf("• %s → %s", oldValue, newValue),
		fmt.Sprintf("• Updated by: %s", data.Caller),
	}
	return strings.Join(lines, "\n")
}

func formatTransactionAbortedAlert(data ports.TransactionAbortedAlert) string {
	lines := []string{
		fmt.Sprintf("*Transaction:* `%d` (%s)", data.TxId, data.Direction),
		fmt.Sprintf("• Asset: %s", data.Asset),
		fmt.Sprintf("• Amount: %s", formatAmount(data.Amount)),
		fmt.Sprintf("• Refunded: %t", data.Refunded),
		fmt.Sprintf("• Reason: %s", data.Reason),
		fmt.Sprintf("• Aborted by: %s", data.Caller),
	}
	return strings.Join(lines, "\n")
}

func formatReleaseFailedAlert(data ports.ReleaseFailedAlert) string {
	lines := []string{
		fmt.Sprintf("*Transaction:* `%d` (inbound)", data.TxId),
		fmt.Sprintf("• Asset: %s", data.Asset),
		fmt.Sprintf("• Amount: %s", formatAmount(data.Amount)),
		fmt.Sprintf("• Recipient: %s", data.Recipient),
	}
	return strings.Join(lines, "\n")
}

func formatGenericAlert(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	lines := make([]string, 0, len(keys))
	for _, key := range keys {
		lines = append(lines, fmt.Sprintf("• %s: %v", key, data[key]))
	}
	return strings.Join(lines, "\n")
}

// formatAmount renders an amount in base units with thousands separators.
func formatAmount(amount uint64) string {
	s := decimal.NewFromBigInt(new(big.Int).SetUint64(amount), 0).String()
	if len(s) <= 3 {
		return s
	}

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

func formatBasisPoints(bps uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(bps), 0).Shift(-2).String() + "%"
}
