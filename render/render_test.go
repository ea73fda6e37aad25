package render

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"leaderbot/core"
	"leaderbot/leaderboard"
)

func TestAwardTexts(t *testing.T) {
	msg := AwardConfirmation(42, 10)
	assert.Equal(t, "Points Awarded", msg.Title)
	assert.Equal(t, "<@42> has been awarded 10 points.", msg.Text)
	assert.Equal(t, ColorGreen, msg.Color)

	assert.Equal(t,
		"Congratulations! <@42>, you have been awarded 10 points. Your current position in the leaderboard is #2.",
		AwardDM(42, 10, 2))
	assert.Equal(t, "Congratulations! <@42>, you have been awarded 10 points.", AwardDM(42, 10, 0))
}

func TestRanking(t *testing.T) {
	empty := Ranking(nil)
	assert.Equal(t, "Leaderboard is empty.", empty.Text)
	assert.Equal(t, ColorRed, empty.Color)

	list := leaderboard.Rank([]core.Entry{
		{ActorID: 42, Points: 10, Wins: 1},
		{ActorID: 7, Points: 15, Wins: 1},
	})
	msg := Ranking(list)
	assert.Equal(t, "Leaderboard", msg.Title)
	assert.Equal(t, "#1 <@7>: 1 wins, 15 points\n#2 <@42>: 1 wins, 10 points", msg.Text)
	assert.Equal(t, ColorBlue, msg.Color)
}

func TestCooldownTexts(t *testing.T) {
	assert.Equal(t, "Please wait 12.3 seconds before using the leaderboard command again.",
		CooldownNotice(12300*time.Millisecond))
	assert.Equal(t, "Please wait `3.0` seconds before using the leaderboard command again.",
		CountdownTick(3))
}

func TestHelp(t *testing.T) {
	msg := Help("=", 0)
	assert.Contains(t, msg.Text, "=add @member points")
	assert.Contains(t, msg.Text, "=leaderboard: Display the current leaderboard. (15 seconds cooldown)")
	assert.Contains(t, msg.Text, "=reset")
	assert.Contains(t, msg.Text, "=help")

	assert.Contains(t, Help("!", 30*time.Second).Text, "!leaderboard: Display the current leaderboard. (30 seconds cooldown)")
}

func TestError(t *testing.T) {
	tests := []struct {
		err   error
		title string
	}{
		{core.ErrPermissionDenied, "Permission Denied"},
		{fmt.Errorf("position: %w", core.ErrNotFound), "Not Ranked"},
		{core.ErrOverflow, "Points Rejected"},
		{core.ErrInvalidActor, "Invalid Member"},
		{&core.StorageError{Op: "award", Err: errors.New("disk full")}, "Leaderboard Unavailable"},
		{errors.New("anything else"), "Leaderboard Unavailable"},
	}
	for _, tt := range tests {
		msg := Error(tt.err)
		assert.Equal(t, tt.title, msg.Title, "err %v", tt.err)
		assert.NotContains(t, msg.Text, "disk full")
	}
	assert.NotEqual(t, Error(core.ErrPermissionDenied).Text, Error(core.ErrNotFound).Text)
}

func TestMessageString(t *testing.T) {
	assert.Equal(t, "Leaderboard Reset\nThe leaderboard has been reset.", ResetDone().String())
	assert.Equal(t, "just text", Message{Text: "just text"}.String())
	assert.Contains(t, NotFound(9).Text, "<@9>")
}
