// Package render builds the user-facing text for every leaderboard outcome.
// Payloads are plain text; the chat front end decides how to present them.
package render

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"leaderbot/core"
	"leaderbot/cooldown"
	"leaderbot/leaderboard"
)

// Color hints how a front end should style a message.
type Color string

const (
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorOrange Color = "orange"
	ColorRed    Color = "red"
)

// Message is a titled payload.
type Message struct {
	Title string `json:"title"`
	Text  string `json:"text"`
	Color Color  `json:"color"`
}

func (m Message) String() string {
	if m.Title == "" {
		return m.Text
	}
	return m.Title + "\n" + m.Text
}

// Mention renders an actor the way chat clients link users.
func Mention(actor core.ActorID) string { return "<@" + actor.String() + ">" }

func AwardConfirmation(target core.ActorID, delta int64) Message {
	return Message{
		Title: "Points Awarded",
		Text:  fmt.Sprintf("%s has been awarded %d points.", Mention(target), delta),
		Color: ColorGreen,
	}
}

// AwardDM is the private note sent to the awarded actor. A non-positive
// position omits the rank sentence.
func AwardDM(target core.ActorID, delta int64, position int) string {
	if position <= 0 {
		return fmt.Sprintf("Congratulations! %s, you have been awarded %d points.", Mention(target), delta)
	}
	return fmt.Sprintf("Congratulations! %s, you have been awarded %d points. Your current position in the leaderboard is #%d.",
		Mention(target), delta, position)
}

func Ranking(list []leaderboard.Ranked) Message {
	msg := Message{Title: "Leaderboard", Color: ColorBlue}
	if len(list) == 0 {
		msg.Text = "Leaderboard is empty."
		msg.Color = ColorRed
		return msg
	}
	lines := make([]string, 0, len(list))
	for _, r := range list {
		lines = append(lines, RankLine(r))
	}
	msg.Text = strings.Join(lines, "\n")
	return msg
}

// RankLine renders one "#i <@id>: W wins, P points" row.
func RankLine(r leaderboard.Ranked) string {
	return fmt.Sprintf("#%d %s: %d wins, %d points", r.Position, Mention(r.Entry.ActorID), r.Entry.Wins, r.Entry.Points)
}

func ResetDone() Message {
	return Message{Title: "Leaderboard Reset", Text: "The leaderboard has been reset.", Color: ColorOrange}
}

func PermissionDenied() Message {
	return Message{
		Title: "Permission Denied",
		Text:  "You do not have the required role to use this command.",
		Color: ColorRed,
	}
}

func NotFound(actor core.ActorID) Message {
	return Message{
		Title: "Not Ranked",
		Text:  fmt.Sprintf("%s is not on the leaderboard yet.", Mention(actor)),
		Color: ColorRed,
	}
}

// Failure never carries internal detail.
func Failure() Message {
	return Message{
		Title: "Leaderboard Unavailable",
		Text:  "Something went wrong while updating the leaderboard. Please try again later.",
		Color: ColorRed,
	}
}

func Overflow() Message {
	return Message{
		Title: "Points Rejected",
		Text:  "That award would push the total past the largest supported value.",
		Color: ColorRed,
	}
}

func InvalidActor() Message {
	return Message{Title: "Invalid Member", Text: "Mention a member or pass their numeric id.", Color: ColorRed}
}

// CooldownNotice is the first reply to a rate-limited leaderboard request.
func CooldownNotice(retryAfter time.Duration) string {
	return fmt.Sprintf("Please wait %.1f seconds before using the leaderboard command again.", retryAfter.Seconds())
}

// CountdownTick replaces the notice once per second while the cooldown runs.
func CountdownTick(remaining int) string {
	return fmt.Sprintf("Please wait `%.1f` seconds before using the leaderboard command again.", float64(remaining))
}

// Help lists the commands under prefix.
func Help(prefix string, window time.Duration) Message {
	if window <= 0 {
		window = cooldown.DefaultWindow
	}
	lines := []string{
		"List of available commands:",
		prefix + "add @member points: Add points to a member and update their position in the leaderboard. (Requires specific role)",
		fmt.Sprintf("%sleaderboard: Display the current leaderboard. (%d seconds cooldown)", prefix, cooldown.Seconds(window)),
		prefix + "position [@member]: Show where a member stands on the leaderboard.",
		prefix + "reset: Reset the leaderboard. (Requires specific role)",
		prefix + "help: Show this help message.",
	}
	return Message{Title: "Help", Text: strings.Join(lines, "\n"), Color: ColorBlue}
}

// Error maps a Service error to its user-visible message. Storage and
// unknown failures collapse into Failure.
func Error(err error) Message {
	switch {
	case errors.Is(err, core.ErrPermissionDenied):
		return PermissionDenied()
	case errors.Is(err, core.ErrOverflow):
		return Overflow()
	case errors.Is(err, core.ErrInvalidActor):
		return InvalidActor()
	case errors.Is(err, core.ErrNotFound):
		return Message{Title: "Not Ranked", Text: "That member is not on the leaderboard yet.", Color: ColorRed}
	default:
		return Failure()
	}
}
