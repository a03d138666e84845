// Package client is the SeaSense Go SDK.
//
// It wraps the seasense-api HTTP interface: registry lookups, arrival
// assessments, direct scoring and the assessment ledger.
//
// # Connecting
//
// An open API needs only the base URL:
//
//	c, err := client.New("http://localhost:8080")
//
// When the server has auth.username configured, pass operator credentials.
// The client exchanges them for a session token on first use and refreshes
// it shortly before expiry:
//
//	c, err := client.New("https://seasense.example.org",
//	    client.WithBasicAuth("ops", os.Getenv("SEASENSE_PASSWORD")),
//	)
//
// A token obtained elsewhere can be attached directly with WithBearerToken.
//
// # Assessing arrivals
//
// Arriving returns every vessel due within the window, reconciled against
// the registry and scored:
//
//	as, err := c.Arriving(ctx, "", 48)
//	for _, a := range as {
//	    fmt.Println(a.VesselArrivalDetails.VesselName, a.Resolution, a.Score.Level)
//	}
//
// # Scoring a registry record
//
// Score evaluates the record for an IMO and records the result in the
// server's ledger:
//
//	res, err := c.Score(ctx, "9074729")
//	fmt.Println(res.Score, res.Level, res.LedgerIndex)
//
// Registry lookups can be cached client-side with WithCacheTTL. Score and
// the assessment calls are never cached.
package client
