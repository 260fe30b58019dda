package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/raftaar/raftaar-backend/internal/apperr"
	"github.com/raftaar/raftaar-backend/internal/directory"
	"github.com/raftaar/raftaar-backend/internal/models"
	"github.com/raftaar/raftaar-backend/internal/notify"
)

const minPasswordLength = 6

var (
	ErrEmailVerified = &apperr.Error{
		Kind:    apperr.Conflict,
		Message: "An account with this email is already verified.",
		Field:   "email",
	}
	ErrMobileVerified = &apperr.Error{
		Kind:    apperr.Conflict,
		Message: "An account with this mobile number is already verified.",
		Field:   "mobileNumber",
	}
	ErrInvalidOTP           = apperr.New(apperr.InvalidOTP, "Invalid OTP")
	ErrInvalidCredentials   = apperr.New(apperr.Unauthorized, "invalid email or password")
	ErrAlreadyVerified      = apperr.New(apperr.Conflict, "Account is already verified")
	ErrBothFieldsRequired   = apperr.New(apperr.Validation, "Email and mobile number are required")
	ErrContactCodeRequired  = apperr.New(apperr.Validation, "contact and otp are required")
	ErrRegistrationRequired = apperr.New(apperr.Validation, "first name, email, mobile number and password are required")
	ErrInvalidEmail         = &apperr.Error{Kind: apperr.Validation, Message: "Invalid email", Field: "email"}
	ErrWeakPassword         = &apperr.Error{
		Kind:    apperr.Validation,
		Message: fmt.Sprintf("password must be at least %d characters", minPasswordLength),
		Field:   "password",
	}
	ErrUnknownChannel = apperr.New(apperr.Validation, "unknown verification channel")
	ErrKindMismatch   = apperr.New(apperr.Unauthorized, "token does not belong to this account type")
)

// Channel is a contact channel that carries its own OTP and verified flag.
type Channel string

const (
	ChannelEmail  Channel = "email"
	ChannelMobile Channel = "mobile"
)

type VerifierConfig struct {
	CountryCode string
	Cooldown    time.Duration
}

type RegisterInput struct {
	FirstName    string
	LastName     string
	Email        string
	MobileNumber string
	Password     string
	ProfilePhoto string
}

// DeliveryReport records which codes reached their provider. A failed
// delivery never undoes the stored code.
type DeliveryReport struct {
	EmailSent bool `json:"emailSent"`
	SMSSent   bool `json:"smsSent"`
}

type RegisterResult struct {
	Email        string         `json:"email"`
	MobileNumber string         `json:"mobileNumber"`
	Delivery     DeliveryReport `json:"delivery"`
}

type LoginResult[A models.Account] struct {
	// VerificationRequired is set when at least one channel is unverified.
	// Tokens is nil in that case.
	VerificationRequired bool
	Email                string
	MobileNumber         string
	Delivery             DeliveryReport
	Account              A
	Tokens               *TokenPair
}

// Verifier drives the per-channel OTP lifecycle for one actor kind.
type Verifier[A models.Account] struct {
	store    directory.Store[A]
	notifier notify.Dispatcher
	tokens   *TokenIssuer
	cfg      VerifierConfig

	now      func() time.Time
	newCode  func() (string, error)
	hashCost int
}

func NewVerifier[A models.Account](store directory.Store[A], notifier notify.Dispatcher, tokens *TokenIssuer, cfg VerifierConfig) *Verifier[A] {
	return &Verifier[A]{
		store:    store,
		notifier: notifier,
		tokens:   tokens,
		cfg:      cfg,
		now:      time.Now,
		newCode:  GenerateOTP,
		hashCost: bcrypt.DefaultCost,
	}
}

func (v *Verifier[A]) Kind() models.ActorKind { return v.store.Kind() }

func (v *Verifier[A]) NormalizeMobile(raw string) string {
	return NormalizeMobile(v.cfg.CountryCode, raw)
}

// Register creates an actor or resumes verification of an unverified one.
// profile, when set, is applied to the record before it is saved.
func (v *Verifier[A]) Register(ctx context.Context, in RegisterInput, profile func(A)) (*RegisterResult, error) {
	email := strings.TrimSpace(in.Email)
	mobile := v.NormalizeMobile(in.MobileNumber)
	firstName := strings.TrimSpace(in.FirstName)

	if firstName == "" || email == "" || mobile == "" || in.Password == "" {
		return nil, ErrRegistrationRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrInvalidEmail
	}
	if len(in.Password) < minPasswordLength {
		return nil, ErrWeakPassword
	}

	byEmail, emailFound, err := v.lookup(ctx, v.store.FindByEmail, email)
	if err != nil {
		return nil, err
	}
	if emailFound && byEmail.Base().FullyVerified() {
		return nil, ErrEmailVerified
	}
	byMobile, mobileFound, err := v.lookup(ctx, v.store.FindByMobile, mobile)
	if err != nil {
		return nil, err
	}
	if mobileFound && byMobile.Base().FullyVerified() {
		return nil, ErrMobileVerified
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), v.hashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	var account A
	switch {
	case emailFound:
		account = byEmail
	case mobileFound:
		account = byMobile
	default:
		account = v.store.New()
		account.Base().ID = uuid.New()
	}

	base := account.Base()
	if !base.EmailVerified {
		base.Email = email
	}
	if !base.MobileVerified {
		base.MobileNumber = mobile
	}
	base.FullName = models.FullName{FirstName: firstName, LastName: strings.TrimSpace(in.LastName)}
	base.Password = string(hash)
	if in.ProfilePhoto != "" {
		base.ProfilePhoto = in.ProfilePhoto
	}
	if profile != nil {
		profile(account)
	}

	if err := v.issue(base, ChannelEmail, ChannelMobile); err != nil {
		return nil, err
	}
	if err := v.store.Save(ctx, account); err != nil {
		return nil, err
	}

	slog.Info("registration accepted",
		"actor_id", base.ID.String(),
		"actor_kind", string(v.Kind()),
		"resumed", emailFound || mobileFound,
	)

	return &RegisterResult{
		Email:        base.Email,
		MobileNumber: base.MobileNumber,
		Delivery:     v.dispatch(ctx, base, ChannelEmail, ChannelMobile),
	}, nil
}

// VerifyChannel checks a submitted code against the one stored for the
// channel and flips only that channel's flag.
func (v *Verifier[A]) VerifyChannel(ctx context.Context, ch Channel, contact, code string) error {
	contact = strings.TrimSpace(contact)
	if contact == "" || strings.TrimSpace(code) == "" {
		return ErrContactCodeRequired
	}

	var (
		account A
		err     error
	)
	switch ch {
	case ChannelEmail:
		account, err = v.store.FindByEmail(ctx, contact)
	case ChannelMobile:
		account, err = v.store.FindByMobile(ctx, v.NormalizeMobile(contact))
	default:
		return ErrUnknownChannel
	}
	if err != nil {
		return err
	}

	base := account.Base()
	switch ch {
	case ChannelEmail:
		if !otpMatches(base.EmailOTP, code) {
			return ErrInvalidOTP
		}
		base.EmailVerified = true
	case ChannelMobile:
		if !otpMatches(base.MobileOTP, code) {
			return ErrInvalidOTP
		}
		base.MobileVerified = true
	}

	if err := v.store.Save(ctx, account); err != nil {
		return err
	}
	slog.Info("channel verified", "actor_id", base.ID.String(), "actor_kind", string(v.Kind()), "channel", string(ch))
	return nil
}

// Login issues tokens only for fully verified actors. Otherwise fresh codes
// go out on the unverified channels and the result asks for verification.
func (v *Verifier[A]) Login(ctx context.Context, email, password string) (*LoginResult[A], error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	account, err := v.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	base := account.Base()
	if err := bcrypt.CompareHashAndPassword([]byte(base.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !base.FullyVerified() {
		pending := unverified(base)
		if err := v.issue(base, pending...); err != nil {
			return nil, err
		}
		if err := v.store.Save(ctx, account); err != nil {
			return nil, err
		}
		return &LoginResult[A]{
			VerificationRequired: true,
			Email:                base.Email,
			MobileNumber:         base.MobileNumber,
			Delivery:             v.dispatch(ctx, base, pending...),
			Account:              account,
		}, nil
	}

	pair, err := v.tokens.Issue(ctx, base, v.Kind())
	if err != nil {
		return nil, err
	}
	return &LoginResult[A]{
		Email:        base.Email,
		MobileNumber: base.MobileNumber,
		Account:      account,
		Tokens:       pair,
	}, nil
}

// ResendOTP reissues codes for unverified channels once the cooldown since
// the last issuance has passed.
func (v *Verifier[A]) ResendOTP(ctx context.Context, email, mobile string) (*DeliveryReport, error) {
	email = strings.TrimSpace(email)
	mobile = v.NormalizeMobile(mobile)
	if email == "" || mobile == "" {
		return nil, ErrBothFieldsRequired
	}

	account, err := v.store.FindByEmailOrMobile(ctx, email, mobile)
	if err != nil {
		return nil, err
	}
	base := account.Base()
	if base.FullyVerified() {
		return nil, ErrAlreadyVerified
	}
	if remaining := v.cooldownRemaining(base); remaining > 0 {
		return nil, apperr.Cooldown(remaining)
	}

	pending := unverified(base)
	if err := v.issue(base, pending...); err != nil {
		return nil, err
	}
	if err := v.store.Save(ctx, account); err != nil {
		return nil, err
	}

	report := v.dispatch(ctx, base, pending...)
	return &report, nil
}

func (v *Verifier[A]) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	stored, err := v.tokens.Consume(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if stored.ActorKind != v.Kind() {
		return nil, ErrKindMismatch
	}

	account, err := v.store.FindByID(ctx, stored.ActorID)
	if err != nil {
		return nil, err
	}
	return v.tokens.Issue(ctx, account.Base(), v.Kind())
}

func (v *Verifier[A]) Logout(ctx context.Context, refreshToken string) error {
	return v.tokens.Revoke(ctx, refreshToken)
}

func (v *Verifier[A]) Profile(ctx context.Context, id uuid.UUID) (A, error) {
	return v.store.FindByID(ctx, id)
}

func (v *Verifier[A]) lookup(ctx context.Context, find func(context.Context, string) (A, error), key string) (A, bool, error) {
	account, err := find(ctx, key)
	if err == nil {
		return account, true, nil
	}
	if errors.Is(err, directory.ErrNotFound) {
		return account, false, nil
	}
	return account, false, err
}

// cooldownRemaining returns whole seconds left before another code may be
// issued, rounded up.
func (v *Verifier[A]) cooldownRemaining(base *models.Actor) int {
	if base.LastOTPSent == nil || v.cfg.Cooldown <= 0 {
		return 0
	}
	elapsed := v.now().Sub(*base.LastOTPSent)
	if elapsed >= v.cfg.Cooldown {
		return 0
	}
	left := v.cfg.Cooldown - elapsed
	if left > v.cfg.Cooldown {
		left = v.cfg.Cooldown
	}
	return int(math.Ceil(left.Seconds()))
}

func (v *Verifier[A]) issue(base *models.Actor, channels ...Channel) error {
	for _, ch := range channels {
		code, err := v.newCode()
		if err != nil {
			return err
		}
		switch ch {
		case ChannelEmail:
			base.EmailOTP = code
		case ChannelMobile:
			base.MobileOTP = code
		}
	}
	now := v.now()
	base.LastOTPSent = &now
	return nil
}

// dispatch sends the stored codes for channels concurrently. Failures are
// logged and reported, never returned.
func (v *Verifier[A]) dispatch(ctx context.Context, base *models.Actor, channels ...Channel) DeliveryReport {
	var (
		wg     sync.WaitGroup
		report DeliveryReport
	)
	for _, ch := range channels {
		wg.Add(1)
		go func(ch Channel) {
			defer wg.Done()
			var err error
			switch ch {
			case ChannelEmail:
				err = v.notifier.SendEmailCode(ctx, base.Email, base.EmailOTP)
				report.EmailSent = err == nil
			case ChannelMobile:
				err = v.notifier.SendSMSCode(ctx, base.MobileNumber, base.MobileOTP)
				report.SMSSent = err == nil
			}
			if err != nil {
				slog.Warn("otp dispatch failed",
					"actor_id", base.ID.String(),
					"actor_kind", string(v.Kind()),
					"channel", string(ch),
					"error", err.Error(),
				)
			}
		}(ch)
	}
	wg.Wait()
	return report
}

func unverified(base *models.Actor) []Channel {
	var pending []Channel
	if !base.EmailVerified {
		pending = append(pending, ChannelEmail)
	}
	if !base.MobileVerified {
		pending = append(pending, ChannelMobile)
	}
	return pending
}
