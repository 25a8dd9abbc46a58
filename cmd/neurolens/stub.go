package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/neurolens/internal/analysisstub"
)

func newStubCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve a local stand-in for the analysis service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := newHTTPServer(addr, analysisstub.NewServer().Handler())
			streaming(srv)
			return serveHTTP(cmd.Context(), srv, nil)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8000", "listen address")
	return cmd
}
