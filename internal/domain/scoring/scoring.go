// Package scoring holds the match crediting policy.
package scoring

// Input describes one fetched match from the perspective of the tracked
// player.
type Input struct {
	// GameScore is the player's score in the match, valid only when
	// Participated is true.
	GameScore int64

	// Ranked reports whether the match counted for ranking.
	Ranked bool

	// Participated reports whether the player appeared in the match's
	// participant list. The API occasionally returns matches the player
	// is absent from; those must not move the totals.
	Participated bool
}

// Result is the credit to apply for one match.
type Result struct {
	// Delta is the signed score change. Only ranked matches carry a
	// delta; losses subtract and no clamping is applied.
	Delta int64

	// Ranked selects which match counter to bump.
	Ranked bool
}

// Assess maps one match to the credit it earns. Non-ranked matches and
// matches without the player are counted but never scored.
func Assess(in Input) Result {
	if !in.Participated || !in.Ranked {
		return Result{}
	}
	return Result{Delta: in.GameScore, Ranked: true}
}
