package main

import (
	"os"

	"github.com/spf13/cobra"

	askcmder "github.com/prometheux/docschat/cmd/docschat/ask"
	servecmder "github.com/prometheux/docschat/cmd/docschat/serve"
)

func main() {
	root := &cobra.Command{
		Use:           "docschat",
		Short:         "Documentation chat assistant for Vadalog",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(servecmder.NewServeCmd())
	root.AddCommand(askcmder.NewAskCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
