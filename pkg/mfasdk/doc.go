// Package mfasdk is the Go client for the BarTab MFA service.
//
// The service sits behind the auth service: every /v1/mfa call carries the
// caller's access token, and the MFA service reads the subject and email from
// it.
//
//	c := mfasdk.NewClient("http://localhost:8081", mfasdk.StaticToken(accessToken))
//
//	setup, err := c.BeginSetup(ctx)
//	// show setup.QRCode, then ask the user for the first code
//	codes, err := c.ConfirmSetup(ctx, "123456")
//
//	res, err := c.Challenge(ctx, "123456", mfasdk.MethodTOTP)
//	var apiErr *mfasdk.APIError
//	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
//		// locked out, wait apiErr.RetryAfter seconds
//	}
//
// The request and response types in this package are also the wire types the
// service encodes, so the two cannot drift.
package mfasdk
