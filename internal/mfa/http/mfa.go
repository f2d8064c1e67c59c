package http

import (
	"encoding/json"
	"net/http"

	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/domain"
	"github.com/aussiebroadwan/bartab-mfa/internal/mfa/service"
	"github.com/aussiebroadwan/bartab-mfa/pkg/httpx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/mfasdk"
	"github.com/aussiebroadwan/bartab-mfa/pkg/qrx"
	"github.com/aussiebroadwan/bartab-mfa/pkg/slogx"
)

// maxBodyBytes bounds request bodies; every MFA body is a code or two.
const maxBodyBytes = 4 << 10

// MFAHandler serves the /v1/mfa endpoints. The caller identity comes from
// AuthnMiddleware.
type MFAHandler struct {
	MFAService *service.MFAService
	QRSize     int
}

// HandleStatus handles GET /v1/mfa/status
//
//	@Summary		Get MFA status
//	@Description	Returns whether MFA is enabled for the caller and whether email OTP should be offered instead.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	mfasdk.StatusResponse	"Enrolment state"
//	@Failure		401	{object}	mfasdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500	{object}	mfasdk.ErrorResponse	"Internal server error"
//	@Router			/v1/mfa/status [get].
func (h *MFAHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	status, err := h.MFAService.Status(ctx, userID)
	if err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.StatusResponse{
		MFAEnabled:           status.MFAEnabled,
		MFAType:              string(status.MFAType),
		SetupAt:              status.SetupAt,
		SuggestEmailOTP:      status.SuggestEmailOTP,
		BackupCodesRemaining: status.BackupCodesRemaining,
	})
}

// HandleSetup handles POST /v1/mfa/totp/setup
//
//	@Summary		Begin TOTP setup
//	@Description	Generates a TOTP secret for the caller and returns it with a provisioning URI and QR code. The secret is shown once.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	mfasdk.TOTPSetupResponse	"TOTP secret and QR code"
//	@Failure		401	{object}	mfasdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409	{object}	mfasdk.ErrorResponse		"MFA already enabled"
//	@Failure		500	{object}	mfasdk.ErrorResponse		"Internal server error"
//	@Router			/v1/mfa/totp/setup [post].
func (h *MFAHandler) HandleSetup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	setup, err := h.MFAService.BeginSetup(ctx, userID, httpx.EmailFromContext(ctx))
	if err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	// The QR code is a convenience; the URI alone is enough to enrol.
	qr, err := qrx.RenderDataURI(setup.ProvisioningURI, h.QRSize)
	if err != nil {
		log.Warn("failed to render QR code", "user_id", userID, "err", err)
		qr = ""
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.TOTPSetupResponse{
		Secret:          setup.Secret,
		ProvisioningURI: setup.ProvisioningURI,
		QRCode:          qr,
		Issuer:          setup.Issuer,
		Account:         setup.Account,
	})
}

// HandleVerify handles POST /v1/mfa/totp/verify
//
//	@Summary		Confirm TOTP setup
//	@Description	Verifies the first code from the authenticator app, enables MFA and returns backup codes. Not subject to lockout.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfasdk.CodeRequest			true	"TOTP code"
//	@Success		200		{object}	mfasdk.BackupCodesResponse	"Backup codes (shown once)"
//	@Failure		400		{object}	mfasdk.ErrorResponse		"Invalid code, bad request or no setup in progress"
//	@Failure		401		{object}	mfasdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		409		{object}	mfasdk.ErrorResponse		"MFA already enabled"
//	@Failure		500		{object}	mfasdk.ErrorResponse		"Internal server error"
//	@Router			/v1/mfa/totp/verify [post].
func (h *MFAHandler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req mfasdk.CodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	codes, err := h.MFAService.ConfirmSetup(ctx, userID, req.Code)
	if err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.BackupCodesResponse{Codes: codes})
}

// HandleChallenge handles POST /v1/mfa/challenge
//
//	@Summary		Verify a login code
//	@Description	Verifies a TOTP, backup or email code. Every failure counts towards a shared lockout: five in a row lock the user for 15 minutes.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfasdk.ChallengeRequest		true	"Code and method"
//	@Success		200		{object}	mfasdk.ChallengeResponse	"Code accepted"
//	@Failure		400		{object}	mfasdk.ErrorResponse		"Invalid code, method, or MFA not enabled"
//	@Failure		401		{object}	mfasdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		429		{object}	mfasdk.ErrorResponse		"Locked out, see retry_after"
//	@Failure		500		{object}	mfasdk.ErrorResponse		"Internal server error"
//	@Router			/v1/mfa/challenge [post].
func (h *MFAHandler) HandleChallenge(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req mfasdk.ChallengeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	res, err := h.MFAService.Challenge(ctx, userID, req.Code, domain.ChallengeMethod(req.Method))
	if err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.ChallengeResponse{
		Verified: res.Verified,
		Method:   string(res.Method),
	})
}

// HandleDisable handles POST /v1/mfa/disable
//
//	@Summary		Disable MFA
//	@Description	Turns MFA off after checking a current TOTP code. Clears the secret and backup codes.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfasdk.CodeRequest		true	"TOTP code"
//	@Success		200		{object}	mfasdk.MessageResponse	"MFA disabled"
//	@Failure		400		{object}	mfasdk.ErrorResponse	"Invalid code or MFA not enabled"
//	@Failure		401		{object}	mfasdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500		{object}	mfasdk.ErrorResponse	"Internal server error"
//	@Router			/v1/mfa/disable [post].
func (h *MFAHandler) HandleDisable(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req mfasdk.CodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := h.MFAService.Disable(ctx, userID, req.Code); err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.MessageResponse{Message: "MFA disabled"})
}

// HandleRegenerateBackupCodes handles POST /v1/mfa/backup-codes
//
//	@Summary		Regenerate backup codes
//	@Description	Replaces every backup code after checking a current TOTP code.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		mfasdk.CodeRequest			true	"TOTP code"
//	@Success		200		{object}	mfasdk.BackupCodesResponse	"New backup codes (shown once)"
//	@Failure		400		{object}	mfasdk.ErrorResponse		"Invalid code or MFA not enabled"
//	@Failure		401		{object}	mfasdk.ErrorResponse		"Invalid or missing access token"
//	@Failure		500		{object}	mfasdk.ErrorResponse		"Internal server error"
//	@Router			/v1/mfa/backup-codes [post].
func (h *MFAHandler) HandleRegenerateBackupCodes(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	var req mfasdk.CodeRequest
	if !decodeBody(w, r, &req) {
		return
	}

	codes, err := h.MFAService.RegenerateBackupCodes(ctx, userID, req.Code)
	if err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.BackupCodesResponse{Codes: codes})
}

// HandleEmailOTP handles POST /v1/mfa/email-otp
//
//	@Summary		Send an email OTP
//	@Description	Issues a 6 digit code valid for 10 minutes and mails it to the caller. Succeeds even if delivery fails.
//	@Tags			MFA
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	mfasdk.EmailOTPResponse	"Masked address and expiry"
//	@Failure		400	{object}	mfasdk.ErrorResponse	"No email on file"
//	@Failure		401	{object}	mfasdk.ErrorResponse	"Invalid or missing access token"
//	@Failure		500	{object}	mfasdk.ErrorResponse	"Internal server error"
//	@Router			/v1/mfa/email-otp [post].
func (h *MFAHandler) HandleEmailOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID, ok := httpx.UserIDFromContext(ctx)
	if !ok {
		mfasdk.ErrInvalidToken.WriteError(w)
		return
	}

	issued, err := h.MFAService.IssueEmailOTP(ctx, userID, httpx.EmailFromContext(ctx))
	if err != nil {
		writeServiceError(w, log, userID, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, mfasdk.EmailOTPResponse{
		MaskedEmail: issued.MaskedEmail,
		ExpiresIn:   issued.ExpiresInSeconds,
		Delivered:   issued.Delivered,
		DevCode:     issued.DevCode,
	})
}

// decodeBody parses a JSON body into v, writing invalid_request on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		slogx.FromContext(r.Context()).Warn("failed to parse request", "err", err)
		mfasdk.NewAPIError(http.StatusBadRequest, mfasdk.ErrorCodeInvalidRequest, "invalid JSON body").WriteError(w)
		return false
	}
	return true
}
