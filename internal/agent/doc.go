// Package agent drives the external code-generation agent CLI.
//
// # Invocation Protocol
//
// Every invocation uses the same argument vector (see BuildArgs):
//
//	<agent-binary> -p <prompt> --allow-all-tools
//	    --add-dir <absolute-working-directory>
//	    [--add-dir <absolute-parent-directory>]
//	    --model <model-identifier>
//
// On Windows hosts the vector is prefixed with "cmd.exe /c".
//
// # Execution Modes
//
// Service offers two modes:
//
//  1. RunBatch - blocks until the agent exits and returns a domain.ProcessResult
//  2. RunInteractive - returns a live *Session whose stdin stays open
//
// Example usage:
//
//	svc := agent.NewService(agent.Config{WorkDir: dir}, nil)
//	session, err := svc.RunInteractive(ctx, prompt, func(line string) {
//	    fmt.Println(line)
//	})
//	if err != nil {
//	    return err // *process.LaunchError when the binary cannot start
//	}
//	go io.Copy(session.Stdin(), os.Stdin)
//	result, err := session.Wait()
//
// Interactive output is framed by FrameLines, which treats '\r' as a line
// terminator so carriage-return progress redraws reach the caller.
//
// # Skipping Execution
//
// Setting FORGE_SKIP_AGENT (Config.SkipExecution) makes RunBatch return a
// synthetic success without spawning anything. RunInteractive refuses to run
// with ErrInteractiveSkipped.
//
// # Runners
//
// InteractiveRunner and BatchRunner adapt the two modes to the Runner
// interface consumed by the fix loop.
package agent
