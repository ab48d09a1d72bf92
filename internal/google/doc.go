// Package google authenticates to Google APIs with a service-account credential.
//
// The flow is split into three small pieces so each can be tested on its own:
//
//   - LoadCredential parses the service-account JSON key file.
//   - Signer builds a one-hour claim set and signs it with RS256.
//   - Exchanger trades the signed assertion for an access token at the token endpoint.
//
// TokenProvider glues the signer and exchanger together and optionally caches the
// issued token until it expires.
//
// Example usage:
//
//	cred, err := google.LoadCredentialFile("service-account.json")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	signer, err := google.NewSigner(cred, google.CalendarReadonlyScope)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	provider := google.NewTokenProvider(signer, google.NewExchanger(google.ExchangerConfig{}), false)
//	token, err := provider.AccessToken(ctx)
package google
