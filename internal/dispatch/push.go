package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// PushNotifier posts FCM-style JSON messages to a push provider endpoint.
type PushNotifier struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewPushNotifier(endpoint, key string) *PushNotifier {
	return &PushNotifier{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

type pushMessage struct {
	Message struct {
		Topic        string `json:"topic"`
		Notification struct {
			Title string `json:"title"`
			Body  string `json:"body"`
		} `json:"notification"`
	} `json:"message"`
}

func (p *PushNotifier) Notify(ctx context.Context, rider, title, body string) error {
	var msg pushMessage
	msg.Message.Topic = "rider-" + rider
	msg.Message.Notification.Title = title
	msg.Message.Notification.Body = body
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.Key != "" {
		req.Header.Set("Authorization", "Bearer "+p.Key)
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("push endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// LogNotifier logs notifications instead of sending them.
type LogNotifier struct{ Logger *slog.Logger }

func (l LogNotifier) Notify(_ context.Context, rider, title, body string) error {
	l.Logger.Info("push notification", "rider", rider, "title", title, "body", body)
	return nil
}
