package utils

import (
	"log"
	"os"

	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// PushClient sends APNs notifications with .p8 token auth.
// Configuration: APNS_KEY_PATH, APNS_KEY_ID, APNS_TEAM_ID, APNS_TOPIC,
// APNS_PRODUCTION ("true" to use the production gateway).
type PushClient struct {
	client *apns2.Client
	topic  string
}

func NewPushClient() *PushClient {
	keyPath := os.Getenv("APNS_KEY_PATH")
	if keyPath == "" {
		log.Println("⚠️  APNS_KEY_PATH not set, push notifications disabled")
		return nil
	}

	authKey, err := token.AuthKeyFromFile(keyPath)
	if err != nil {
		log.Println("error loading APNs auth key:", err)
		return nil
	}

	t := &token.Token{
		AuthKey: authKey,
		KeyID:   os.Getenv("APNS_KEY_ID"),
		TeamID:  os.Getenv("APNS_TEAM_ID"),
	}

	client := apns2.NewTokenClient(t)
	if os.Getenv("APNS_PRODUCTION") == "true" {
		client = client.Production()
	} else {
		client = client.Development()
	}

	return &PushClient{
		client: client,
		topic:  os.Getenv("APNS_TOPIC"),
	}
}

func (p *PushClient) Send(deviceToken, title, body string, data map[string]interface{}) error {
	pl := payload.NewPayload().AlertTitle(title).AlertBody(body).Sound("default")
	for k, v := range data {
		pl.Custom(k, v)
	}

	notification := &apns2.Notification{
		DeviceToken: deviceToken,
		Topic:       p.topic,
		Payload:     pl,
	}

	res, err := p.client.Push(notification)
	if err != nil {
		return err
	}
	if !res.Sent() {
		log.Printf("push to %s not sent: %d %s", deviceToken, res.StatusCode, res.Reason)
	}
	return nil
}
