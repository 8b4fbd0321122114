package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "gitlab-mr-reviewer",
		Usage: "AI code review for GitLab merge requests",
		Commands: []*cli.Command{
			newServeCommand(),
			newRunCommand(),
			newStatsCommand(),
		},
	}
}
