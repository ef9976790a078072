package main

import "github.com/varalys/trello-watchman/cmd/watchman"

func main() { watchman.Execute() }
