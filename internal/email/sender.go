// Package email renders and delivers the matching digests sent to agencies.
package email

import "context"

// DigestRow is one line of the digest table.
type DigestRow struct {
	LeadName     string
	PropertyCode string
	Neighborhood string
	Score        float64
	DistanceKm   float64
}

// MatchDigest summarises one batch run.
type MatchDigest struct {
	ClientName     string
	LeadsProcessed int
	MatchesFound   int
	ReportKey      string
	Matches        []DigestRow
}

type Sender interface {
	SendMatchDigest(ctx context.Context, toEmail string, digest MatchDigest) error
}

// NoopSender drops every message. Used when SMTP is not configured.
type NoopSender struct{}

func (NoopSender) SendMatchDigest(context.Context, string, MatchDigest) error { return nil }
