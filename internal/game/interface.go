// Package game defines the daily mini-games that pay out rewards.
// Adding a new game only requires implementing the Game interface and registering it.
package game

import "github.com/shopspring/decimal"

// Game is a once-per-day mini-game.
type Game interface {
	// Type returns the game_type key stored on participations (e.g. "daily_spin").
	Type() string

	// Name returns the display name used in transaction descriptions.
	Name() string

	// Description returns a brief description of the game.
	Description() string

	// BaseReward returns the reward before tier multiplier and random factor.
	BaseReward() decimal.Decimal
}

// Daily is a Game defined entirely by its catalog entry.
type Daily struct {
	Key    string
	Title  string
	About  string
	Reward decimal.Decimal
}

func (d Daily) Type() string                { return d.Key }
func (d Daily) Name() string                { return d.Title }
func (d Daily) Description() string         { return d.About }
func (d Daily) BaseReward() decimal.Decimal { return d.Reward }

// Game types.
const (
	TypeDailySpin   = "daily_spin"
	TypeScratchCard = "scratch_card"
	TypeQuiz        = "quiz"
)

var defaultGames = []Daily{
	{Key: TypeDailySpin, Title: "Daily Spin", About: "Spin the wheel once a day", Reward: decimal.NewFromInt(500)},
	{Key: TypeScratchCard, Title: "Scratch Card", About: "Scratch a card once a day", Reward: decimal.NewFromInt(300)},
	{Key: TypeQuiz, Title: "Daily Quiz", About: "Answer the daily quiz", Reward: decimal.NewFromInt(200)},
}

// Defaults returns the built-in games. Base rewards present in overrides replace the built-in ones.
func Defaults(overrides map[string]decimal.Decimal) []Game {
	games := make([]Game, 0, len(defaultGames))
	for _, g := range defaultGames {
		if r, ok := overrides[g.Key]; ok {
			g.Reward = r
		}
		games = append(games, g)
	}
	return games
}
