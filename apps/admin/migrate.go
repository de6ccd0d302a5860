package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) migrate(args []string) error {
	ctx := context.Background()

	sub := "up"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "up":
		name := make([]string, 0, 1)
		if len(args) > 1 {
			name = append(name, args[1])
		}
		results, err := cli.runner.Run(ctx, name...)
		if err != nil {
			return err
		}
		printResults(results...)
		return nil
	case "status":
		status, err := cli.runner.Status(ctx)
		if err != nil {
			return err
		}
		for _, st := range status {
			state := "pending"
			if st.Executed {
				state = "executed"
			}
			fmt.Printf("%-45s %-12s %s\n", st.Script, state, st.Path)
		}
		return nil
	case "mark":
		if len(args) < 2 {
			return fmt.Errorf("mark must be of form: migrate mark NAME")
		}
		printResults(cli.runner.MarkExecuted(ctx, args[1]))
		return nil
	case "rollback":
		name := make([]string, 0, 1)
		if len(args) > 1 {
			name = append(name, args[1])
		}
		printResults(cli.runner.Rollback(ctx, name...))
		return nil
	default:
		return fmt.Errorf("%q: no such migrate command", sub)
	}
}
