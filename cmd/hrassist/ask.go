package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/hrassist/coordinator"
)

type askFlags struct {
	noReuse  bool
	threadID string
	stream   bool
}

func (f *askFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVar(&f.noReuse, "no-reuse-thread", false, "Do not reuse the persisted thread")
	fl.StringVar(&f.threadID, "thread-id", "", "Explicit thread id to continue")
	fl.BoolVar(&f.stream, "stream", false, "Stream the answer as it is generated")
}

func newAskCmd(g *globalFlags) *cobra.Command {
	f := &askFlags{}
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask one question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAskCmd(cmd, g, f, args[0])
		},
	}
	f.register(cmd)
	return cmd
}

func runAskCmd(cmd *cobra.Command, g *globalFlags, f *askFlags, question string) error {
	ctx := cmd.Context()

	app, err := g.openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close(context.WithoutCancel(ctx))

	return ask(ctx, cmd.OutOrStdout(), app.Coordinator, f, question)
}

// conversation runs exchanges. *coordinator.Coordinator satisfies it.
type conversation interface {
	Converse(ctx context.Context, req coordinator.Request) (*coordinator.Result, error)
}

// ask runs one CLI exchange. No session id is passed, so the coordinator
// uses the local session and thread files.
func ask(ctx context.Context, w io.Writer, conv conversation, f *askFlags, question string) error {
	res, err := conv.Converse(ctx, coordinator.Request{
		Question:    question,
		ThreadID:    f.threadID,
		ReuseThread: !f.noReuse,
		Streaming:   f.stream,
	})
	if err != nil {
		return err
	}

	p := newPrinter(w)
	p.banner(res.RunID, res.TraceID)

	var reply *coordinator.Reply
	if res.Stream != nil {
		reply, err = streamTo(w, res.Stream)
	} else {
		reply, err = res.Collect()
	}
	if err != nil {
		return err
	}

	p.answer(reply.Answer, reply.ThreadID)
	return nil
}

func streamTo(w io.Writer, s *coordinator.Stream) (*coordinator.Reply, error) {
	reply := &coordinator.Reply{}
	var text []byte
	for inc, err := range s.All() {
		if err != nil {
			fmt.Fprintln(w)
			return nil, err
		}
		if inc.Final {
			reply.ThreadID = inc.ThreadID
			continue
		}
		text = append(text, inc.Fragment...)
		fmt.Fprint(w, inc.Fragment)
	}
	fmt.Fprintln(w)
	reply.Answer = string(text)
	return reply, nil
}
