package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) seed(args []string) error {
	ctx := context.Background()

	sub := "run"
	if len(args) > 0 {
		sub = args[0]
	}
	name := make([]string, 0, 1)
	if len(args) > 1 {
		name = append(name, args[1])
	}

	switch sub {
	case "run":
		results, err := cli.seeder.Run(ctx, name...)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	case "refresh":
		// truncates the seeded tables first, then re-runs the seeds
		results, err := cli.seeder.Refresh(ctx, nil, name...)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	case "list":
		list, err := cli.seeder.List()
		if err != nil {
			return err
		}
		for _, st := range list {
			fmt.Printf("%-45s %s\n", st.Script, st.Path)
		}
		return nil
	default:
		return fmt.Errorf("%q: no such seed command", sub)
	}
}
