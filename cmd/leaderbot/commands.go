package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/jonboulle/clockwork"
	"github.com/urfave/cli/v2"

	"leaderbot/cooldown"
	"leaderbot/core"
	"leaderbot/render"
	sdk "leaderbot/sdk/go"
)

const leaderboardCommand = "leaderboard"

// errRejected marks a command the server refused; the rendered reason has
// already been printed.
var errRejected = errors.New("command rejected")

func newApp(out io.Writer, clock clockwork.Clock) *cli.App {
	return &cli.App{
		Name:            "leaderbot",
		Usage:           "award points and query the leaderboard through a leaderbot server",
		Writer:          out,
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server",
				Usage:   "base URL of the leaderbot API",
				Value:   "http://localhost:8080/api",
				EnvVars: []string{"LEADERBOT_SERVER_URL"},
			},
			&cli.StringFlag{
				Name:    "api-key",
				Usage:   "API key sent as X-API-Key",
				EnvVars: []string{"LEADERBOT_API_KEY"},
			},
			&cli.StringSliceFlag{
				Name:    "role",
				Usage:   "role id held by the invoking member (repeatable)",
				EnvVars: []string{"LEADERBOT_ROLES"},
			},
			&cli.StringFlag{
				Name:    "guild",
				Usage:   "guild id the leaderboard cooldown is scoped to",
				Value:   "default",
				EnvVars: []string{"LEADERBOT_GUILD"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "award",
				Usage:     "award points to a member",
				ArgsUsage: "<member> <points>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 2 {
						return errors.New("usage: award <member> <points>")
					}
					target, err := core.ParseActorID(c.Args().Get(0))
					if err != nil {
						return reply(c, render.InvalidActor())
					}
					delta, err := strconv.ParseInt(c.Args().Get(1), 10, 64)
					if err != nil {
						return fmt.Errorf("points must be an integer: %q", c.Args().Get(1))
					}
					client, err := newClient(c)
					if err != nil {
						return err
					}
					res, err := client.Award(c.Context, target.String(), delta, c.StringSlice("role"))
					if err != nil {
						return replyError(c, err)
					}
					fmt.Fprintln(c.App.Writer, toMessage(res.Message).String())
					fmt.Fprintln(c.App.Writer, "DM:", res.DM)
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "clear the leaderboard",
				Action: func(c *cli.Context) error {
					client, err := newClient(c)
					if err != nil {
						return err
					}
					msg, err := client.Reset(c.Context, c.StringSlice("role"))
					if err != nil {
						return replyError(c, err)
					}
					fmt.Fprintln(c.App.Writer, toMessage(msg).String())
					return nil
				},
			},
			{
				Name:  leaderboardCommand,
				Usage: "display the current leaderboard",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "cooldown",
						Usage: "length of the countdown shown while the command is limited",
						Value: cooldown.DefaultWindow,
					},
				},
				Action: func(c *cli.Context) error {
					client, err := newClient(c)
					if err != nil {
						return err
					}
					scope := cooldown.ScopeKey(c.String("guild"), leaderboardCommand)
					status, err := client.Cooldown(c.Context, scope)
					if err != nil {
						return replyError(c, err)
					}
					if !status.Acquired {
						return countdown(c, clock, status)
					}
					lb, err := client.Leaderboard(c.Context)
					if err != nil {
						return replyError(c, err)
					}
					fmt.Fprintln(c.App.Writer, toMessage(lb.Message).String())
					return nil
				},
			},
			{
				Name:      "position",
				Usage:     "show one member's rank",
				ArgsUsage: "<member>",
				Action: func(c *cli.Context) error {
					target, err := core.ParseActorID(c.Args().First())
					if err != nil {
						return reply(c, render.InvalidActor())
					}
					client, err := newClient(c)
					if err != nil {
						return err
					}
					rk, err := client.Position(c.Context, target.String())
					if err != nil {
						return replyError(c, err)
					}
					fmt.Fprintf(c.App.Writer, "#%d %s: %d wins, %d points\n", rk.Position, render.Mention(target), rk.Wins, rk.Points)
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "stream leaderboard events as JSON lines",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "type", Usage: "only stream these event types"},
				},
				Action: func(c *cli.Context) error {
					client, err := newClient(c)
					if err != nil {
						return err
					}
					var types []core.EventType
					for _, t := range c.StringSlice("type") {
						types = append(types, core.EventType(t))
					}
					events, err := client.SubscribeEvents(c.Context, types...)
					if err != nil {
						return err
					}
					for ev := range events {
						fmt.Fprintf(c.App.Writer, "%s %s actor=%s points=%d wins=%d position=%d\n",
							ev.Time.Format("15:04:05"), ev.Type, ev.ActorID, ev.Points, ev.Wins, ev.Position)
					}
					return nil
				},
			},
			{
				Name:  "help",
				Usage: "list the available commands",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prefix", Value: "=", Usage: "chat command prefix"},
					&cli.DurationFlag{Name: "cooldown", Value: cooldown.DefaultWindow},
				},
				Action: func(c *cli.Context) error {
					return reply(c, render.Help(c.String("prefix"), c.Duration("cooldown")))
				},
			},
		},
	}
}

func newClient(c *cli.Context) (*sdk.Client, error) {
	return sdk.NewClient(c.String("server"), sdk.WithAPIKey(c.String("api-key")))
}

// countdown prints the cooldown notice and then one tick per second until
// the window reopens or the command is interrupted.
func countdown(c *cli.Context, clock clockwork.Clock, status sdk.CooldownResult) error {
	w := c.App.Writer
	fmt.Fprintln(w, status.Message)
	ctl := cooldown.New(clock, c.Duration("cooldown"), cooldown.DefaultMaxUses)
	done := ctl.RunCountdown(c.Context, status.RetryAfter(), func(remaining int) {
		fmt.Fprintln(w, render.CountdownTick(remaining))
	})
	if !done {
		return c.Context.Err()
	}
	return nil
}

func reply(c *cli.Context, msg render.Message) error {
	fmt.Fprintln(c.App.Writer, msg.String())
	return nil
}

// replyError shows the server's rendered message for a rejected command and
// reports a non-zero exit.
func replyError(c *cli.Context, err error) error {
	var apiErr *sdk.APIError
	if errors.As(err, &apiErr) && apiErr.Details != nil {
		fmt.Fprintln(c.App.Writer, toMessage(*apiErr.Details).String())
		return errRejected
	}
	return err
}

func toMessage(m sdk.Message) render.Message {
	return render.Message{Title: m.Title, Text: m.Text, Color: render.Color(m.Color)}
}
