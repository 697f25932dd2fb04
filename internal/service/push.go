package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	apperrors "github.com/claudiator/server-go/internal/errors"
	"github.com/claudiator/server-go/internal/model"
	"github.com/claudiator/server-go/internal/repository"
	"github.com/claudiator/server-go/internal/util"
)

// PushRegistrationService records device push tokens.
type PushRegistrationService struct {
	tokens         repository.PushTokenRepository
	defaultSandbox bool
	now            func() time.Time
}

func NewPushRegistrationService(tokens repository.PushTokenRepository, defaultSandbox bool) *PushRegistrationService {
	return &PushRegistrationService{tokens: tokens, defaultSandbox: defaultSandbox, now: time.Now}
}

func (s *PushRegistrationService) Register(ctx context.Context, req model.RegisterPushRequest) error {
	platform := strings.TrimSpace(req.Platform)
	token := strings.TrimSpace(req.PushToken)
	if platform == "" {
		return apperrors.MissingRequired("platform")
	}
	if token == "" {
		return apperrors.MissingRequired("push_token")
	}

	sandbox := s.defaultSandbox
	if req.Sandbox != nil {
		sandbox = *req.Sandbox
	}

	if err := s.tokens.Upsert(ctx, platform, token, sandbox, util.FormatTimestamp(s.now())); err != nil {
		return apperrors.Database(fmt.Errorf("register push token: %w", err))
	}

	log.Info().
		Str("platform", platform).
		Str("token_prefix", util.MaskToken(token, 8)).
		Bool("sandbox", sandbox).
		Msg("push token registered")
	return nil
}
