package main

import "github.com/Lakksithharikarboncard/karbonfx-referral-form/internal/cli"

func main() {
	cli.Execute()
}
