package service

import (
	"github.com/makbank/bankhub.go/db/models"
	"github.com/makbank/bankhub.go/lib/store"
	"github.com/makbank/bankhub.go/lib/tokens"
	"github.com/ziflex/lecho/v3"
)

type BankService struct {
	Config      *Config
	Store       store.Store
	Logger      *lecho.Logger
	Notifier    Notifier
	EntryPubSub *Pubsub
}

func (svc *BankService) GenerateToken(account *models.Account) (string, error) {
	return tokens.GenerateAccessToken(svc.Config.JWTSecret, svc.Config.JWTAccessTokenExpiry, account)
}
