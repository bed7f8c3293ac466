// Package provisioning выдаёт tournament-коды для матчей комнаты через
// трёхшаговую цепочку: provider -> tournament -> codes.
package provisioning

import "context"

// Client - удалённый сервис турниров.
type Client interface {
	RegisterProvider(ctx context.Context, callbackURL string) (int64, error)
	RegisterTournament(ctx context.Context, providerID int64, name string) (int64, error)
	IssueCodes(ctx context.Context, tournamentID int64, spec MatchSpec) ([]string, error)
}

type MatchSpec struct {
	MapType       string `json:"mapType"`
	PickType      string `json:"pickType"`
	SpectatorType string `json:"spectatorType"`
	TeamSize      int    `json:"teamSize"`
	Metadata      string `json:"metadata,omitempty"`
}

// DefaultMatchSpec - 5x5 Summoner's Rift, турнирный драфт.
func DefaultMatchSpec() MatchSpec {
	return MatchSpec{
		MapType:       "SUMMONERS_RIFT",
		PickType:      "TOURNAMENT_DRAFT",
		SpectatorType: "ALL",
		TeamSize:      5,
	}
}
