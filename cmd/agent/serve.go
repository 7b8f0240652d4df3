package main

import (
	"github.com/spf13/cobra"

	"github.com/petasbytes/toolbridge/internal/fsops"
	"github.com/petasbytes/toolbridge/internal/jsonrpc"
	"github.com/petasbytes/toolbridge/internal/server"
	"github.com/petasbytes/toolbridge/tools"
)

func newServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the built-in tools over stdin/stdout",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	cmd.Flags().String("read-root", "", "directory the file tools may read (default: working directory)")
	cmd.Flags().String("write-root", "", "directory edit_file may write (default: read root)")
	cmd.Flags().Bool("enable-exec", false, "register run_command")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	box := cfg.Sandbox
	if f := cmd.Flags().Lookup("read-root"); f.Changed {
		box.ReadRoot = f.Value.String()
	}
	if f := cmd.Flags().Lookup("write-root"); f.Changed {
		box.WriteRoot = f.Value.String()
	}
	if cmd.Flags().Changed("enable-exec") {
		box.EnableExec, _ = cmd.Flags().GetBool("enable-exec")
	}
	sandbox, err := fsops.New(box.ReadRoot, box.WriteRoot)
	if err != nil {
		return err
	}
	readRoot, writeRoot := sandbox.Roots()

	defs, err := tools.Builtin(tools.BuiltinOptions{Sandbox: sandbox, EnableExec: box.EnableExec})
	if err != nil {
		return err
	}
	reg, err := tools.NewRegistry(defs...)
	if err != nil {
		return err
	}
	srv := server.New(reg, server.WithLogger(logger))
	logger.Info("serving tools", "tools", reg.Len(), "read_root", readRoot, "write_root", writeRoot, "exec", box.EnableExec)
	return srv.Serve(cmd.Context(), jsonrpc.Stdio())
}
