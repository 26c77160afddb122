package kyc

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	kycsvc "fundgate-backend/internal/application/kyc"
	"fundgate-backend/internal/pkg/apperr"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	SignatureHeader    = "Kyc-Signature"
	EventStatusUpdated = "kyc.status_updated"
	signatureTolerance = 5 * time.Minute
)

type WebhookHandler struct {
	Service       *kycsvc.Service
	WebhookSecret string
	Now           func() time.Time
}

type providerEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		InvestorID string `json:"investor_id"`
		Status     string `json:"status"`
	} `json:"data"`
}

func (wh *WebhookHandler) now() time.Time {
	if wh.Now != nil {
		return wh.Now()
	}
	return time.Now()
}

// HandleWebhook POST /api/v1/kyc/webhook. Raw body, signature verification, then apply.
// Events that can never succeed are acknowledged so the provider stops retrying.
func (wh *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	rawBody := c.BodyRaw()
	sig := c.Get(SignatureHeader)

	if len(rawBody) == 0 {
		log.Warn().Msg("KYC webhook received empty body")
		return c.Status(400).SendString("Webhook Error: empty body")
	}
	if err := verifySignature(rawBody, sig, wh.WebhookSecret, wh.now()); err != nil {
		log.Warn().Err(err).Bool("has_sig", sig != "").Bool("has_secret", wh.WebhookSecret != "").Msg("KYC webhook signature verification failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}

	var event providerEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		log.Warn().Err(err).Msg("KYC webhook JSON parse failed")
		return c.Status(400).SendString(fmt.Sprintf("Webhook Error: %s", err.Error()))
	}
	if event.Type != EventStatusUpdated {
		return c.Status(200).SendString("ok")
	}

	investorID, err := uuid.Parse(event.Data.InvestorID)
	if err != nil {
		log.Warn().Str("event_id", event.ID).Msg("KYC webhook event without a valid investor id")
		return c.Status(200).SendString("ok")
	}

	_, err = wh.Service.ApplyUpdate(c.UserContext(), kycsvc.Update{
		EventID:    event.ID,
		InvestorID: investorID,
		Status:     strings.ToUpper(event.Data.Status),
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindInternal {
			log.Error().Err(err).Str("event_id", event.ID).Msg("KYC webhook processing failed")
			return c.Status(500).SendString("Webhook Error: processing failed")
		}
		log.Warn().Err(err).Str("event_id", event.ID).Msg("KYC webhook event rejected")
	}
	return c.Status(200).SendString("ok")
}

// verifySignature checks a "t=<unix>,v1=<hex hmac-sha256>" header over "<t>.<body>".
func verifySignature(payload []byte, sigHeader, secret string, now time.Time) error {
	if sigHeader == "" || secret == "" {
		return errors.New("missing signature or secret")
	}

	var timestamp string
	var signatures []string
	for _, part := range strings.Split(sigHeader, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			timestamp = kv[1]
		case "v1":
			signatures = append(signatures, kv[1])
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return errors.New("invalid signature format")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + "." + string(payload)))
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, sig := range signatures {
		if !hmac.Equal([]byte(sig), []byte(expected)) {
			continue
		}
		ts, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return errors.New("invalid timestamp")
		}
		diff := now.Sub(time.Unix(ts, 0))
		if diff < 0 {
			diff = -diff
		}
		if diff > signatureTolerance {
			return errors.New("timestamp outside tolerance")
		}
		return nil
	}
	return errors.New("signature mismatch")
}
