package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"pushsvc/internal/httputil"
	"pushsvc/internal/model"
	"pushsvc/internal/service"
	"pushsvc/internal/transport/http/middleware"
)

const maxRequestBytes = 64 << 10

// SubscriptionRegistrar stores subscriptions sent by devices.
type SubscriptionRegistrar interface {
	Register(ctx context.Context, caller model.Caller, sub *model.SubscriptionRequest, userAgent string) (*model.UpsertResult, error)
}

// Notifier sends a push to every active subscription of a user.
type Notifier interface {
	SendPushNotification(ctx context.Context, userID, title, body string, data map[string]interface{}) model.SendResult
}

type PushHandler struct {
	registry SubscriptionRegistrar
	notifier Notifier
	keys     service.KeyProvider
}

func NewPushHandler(registry SubscriptionRegistrar, notifier Notifier, keys service.KeyProvider) *PushHandler {
	return &PushHandler{
		registry: registry,
		notifier: notifier,
		keys:     keys,
	}
}

// Subscribe handles POST /api/method/push
// The subscription comes as a "subscription" form field (a JSON string) or as
// the "subscription" property of a JSON body (string or object).
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		httputil.WriteJSON(w, http.StatusUnauthorized, model.SubscribeResponse{
			Success: false,
			Message: "Login required to register for push notifications",
		})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	raw, err := subscriptionPayload(r)
	if err != nil {
		writeSubscribeError(w, err)
		return
	}

	sub, err := model.ParseSubscriptionRequest(raw)
	if err != nil {
		writeSubscribeError(w, err)
		return
	}

	result, err := h.registry.Register(r.Context(), caller, sub, r.UserAgent())
	if err != nil {
		log.Printf("[PushHandler] Subscribe failed: user=%s err=%v", caller.User, err)
		writeSubscribeError(w, err)
		return
	}

	message := "Subscription updated successfully"
	if result.Created {
		message = "Subscription created successfully"
	}
	log.Printf("[PushHandler] Subscribe OK: user=%s subscription=%s created=%t", caller.User, result.Subscription.ID, result.Created)

	httputil.WriteJSON(w, http.StatusOK, model.SubscribeResponse{
		Success:          true,
		Message:          message,
		SubscriptionName: result.Subscription.ID,
	})
}

func subscriptionPayload(r *http.Request) ([]byte, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		var body struct {
			Subscription json.RawMessage `json:"subscription"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, model.NewValidationError("Invalid subscription data")
		}
		if string(body.Subscription) == "null" {
			return nil, nil
		}
		return body.Subscription, nil
	}

	// FormValue parses both urlencoded and multipart bodies
	return []byte(r.FormValue("subscription")), nil
}

func writeSubscribeError(w http.ResponseWriter, err error) {
	httputil.WriteJSON(w, httputil.StatusFor(err), model.SubscribeResponse{
		Success: false,
		Message: httputil.PublicMessage(err),
	})
}

// SendPushNotification handles POST /api/method/send_push_notification
// Always answers with a SendResult, also when nothing could be sent.
func (h *PushHandler) SendPushNotification(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)

	var req model.SendPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, model.SendResult{Message: "Invalid request body"})
		return
	}
	req.User = strings.TrimSpace(req.User)
	if req.User == "" || req.Title == "" {
		httputil.WriteJSON(w, http.StatusBadRequest, model.SendResult{Message: "user and title are required"})
		return
	}

	caller, _ := middleware.CallerFromContext(r.Context())
	log.Printf("[PushHandler] SendPushNotification: caller=%s user=%s", caller.User, req.User)

	result := h.notifier.SendPushNotification(r.Context(), req.User, req.Title, req.Body, req.Data)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// VAPIDPublicKey handles GET /api/method/vapid_public_key
// Browsers pass this key as applicationServerKey to pushManager.subscribe().
func (h *PushHandler) VAPIDPublicKey(w http.ResponseWriter, r *http.Request) {
	keys, err := h.keys.VAPIDKeys(r.Context())
	if err == nil && keys.PublicKey == "" {
		err = model.NewConfigError("VAPID keys not configured")
	}
	if err != nil {
		if !errors.Is(err, model.ErrConfig) {
			log.Printf("[PushHandler] VAPIDPublicKey failed: %v", err)
		}
		httputil.WriteJSON(w, httputil.StatusFor(err), map[string]interface{}{
			"success": false,
			"message": httputil.PublicMessage(err),
		})
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]string{"vapid_public_key": keys.PublicKey})
}
