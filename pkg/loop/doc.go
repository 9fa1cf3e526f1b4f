/*
Package loop implements a worker execution loop for command-line worker
processes: it repeatedly asks a caller-supplied processor for one unit of
work and decides, per iteration, whether to continue, sleep or stop.

Two operating modes are supported. In batch mode the loop exits as soon
as the processor reports no work; in worker mode it sleeps between empty
polls and runs until it is told to stop. A loop can be bounded to a fixed
number of processed jobs in either mode.

Two operational hazards are handled inside the loop. Termination signals
are deferred: they are queued by a signals.Source and only acted on at
the next iteration boundary, so a job that has started always runs to
completion. Memory pressure is checked before each job via a
MemoryChecker; a breach stops the loop cooperatively instead of waiting
for the kernel OOM killer.

Minimal use:

	l := loop.New(loop.Config{Worker: true, Sleep: 10 * time.Second},
		loop.ProcessorFunc(pollQueue), logger,
		loop.WithSignals(signals.NewNotifier()))
	code, err := l.Run(ctx)
	if err != nil {
		logger.Fatal(err.Error())
	}
	os.Exit(code)
*/
package loop
