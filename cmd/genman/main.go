//go:build ignore

// genman generates the cyclicnic man page.
// Usage: go run cmd/genman/main.go > cyclicnic.1
package main

import (
	"fmt"
	"os"
)

func main() {
	// Use a fixed date for reproducible builds/CI
	date := "October 2026"

	manpage := fmt.Sprintf(`.TH CYCLICNIC 1 "%s" "cyclicnic 0.1.0" "User Commands"
.SH NAME
cyclicnic \- measure cyclic real-time behaviour of a network interface
.SH SYNOPSIS
.B cyclicnic
[\fIflags\fR]
.SH DESCRIPTION
.B cyclicnic
sends one EtherCAT broadcast frame per cycle from a SCHED_FIFO sender thread
and receives it on a second SCHED_FIFO thread. The sender may only transmit
once the receiver is ready for the previous frame.
.PP
For each loop the cycle time is bucketed relative to the target period.
When the interface supports it, hardware and software receive timestamps
are extracted and their inter-arrival deltas are reported as well.
.PP
Without \fB\-\-nic\fR only the sender's pacing is measured.
.SH OPTIONS
.TP
.BR \-n ", " \-\-nic " \fIname\fR"
Network interface to test. The interface is put into promiscuous mode.
.TP
.BR \-i ", " \-\-iterations " \fIn\fR"
Number of cycles (0 = run until interrupted).
.TP
.BR \-s ", " \-\-period " \fIus\fR"
Send period in microseconds (default 1000).
.TP
.BR \-b ", " \-\-bucket\-width " \fIus\fR"
Histogram bucket width in microseconds (default period/8).
.TP
.B \-\-send\-priority \fIn\fR
SCHED_FIFO priority of the sender (default 42).
.TP
.B \-\-receive\-priority \fIn\fR
SCHED_FIFO priority of the receiver (default 45).
.TP
.B \-\-send\-cpu \fIn\fR
CPU core for the sender (default: last core).
.TP
.B \-\-receive\-cpu \fIn\fR
CPU core for the receiver (default: last core).
.TP
.BR \-p ", " \-\-profile " \fIname\fR"
Use a preset cycle profile. See \fBPROFILES\fR section.
.TP
.BR \-L ", " \-\-list\-profiles
List available profiles.
.TP
.B \-\-simulate
Loop frames through memory instead of a network interface.
.TP
.B \-\-no\-rt
Skip the root check, mlockall, SCHED_FIFO and /dev/cpu_dma_latency.
.TP
.B \-\-json
Print the final summary as JSON instead of a table.
.TP
.B \-\-tail
Track p99, p99.9 and p99.99 with an HDR histogram.
.TP
.B \-\-log\-level \fIlevel\fR
One of debug, info, warn, error (default info).
.TP
.BR \-v ", " \-\-verbose
Show min, mean and median columns and the timestamp delta rows.
.TP
.BR \-h ", " \-\-help
Show help message.
.TP
.B \-\-version
Show version information.
.SH BUCKETS
Each observation is measured by how far it overruns the target period and
falls into one of five buckets:
.PP
.RS
.nf
< w, < 2w, < 4w, < 8w, >= 8w
.fi
.RE
.PP
where \fIw\fR is the bucket width. Non-empty buckets are coloured green to
red on a terminal.
.SH PROFILES
.TP
.B 500hz, 1khz, 2khz, 4khz, 8khz
Standard cycle rates.
.TP
.B smoke
1 kHz for 5000 iterations.
.TP
.B soak
1 kHz for one hour.
.TP
.B motion
4 kHz with a 10us bucket width.
.SH EXAMPLES
Test an interface at 1 kHz until interrupted:
.PP
.RS
.nf
sudo cyclicnic \-\-nic eth1
.fi
.RE
.PP
Four minutes at 4 kHz with timestamp rows:
.PP
.RS
.nf
sudo cyclicnic \-\-nic eth1 \-\-profile 4khz \-\-iterations 960000 \-v
.fi
.RE
.PP
Check scheduling latency without a NIC:
.PP
.RS
.nf
sudo cyclicnic \-\-iterations 60000 \-\-tail
.fi
.RE
.SH EXIT STATUS
.B cyclicnic
exits 0 when the run completes or is interrupted, and 1 on setup failure,
a missing frame or a transport error.
.SH NOTES
.IP \(bu 2
Requires root unless \fB\-\-no\-rt\fR is given.
.IP \(bu 2
The live table is only drawn when stdout is a terminal.
.IP \(bu 2
Negative timestamp deltas are dropped and counted.
.SH SEE ALSO
.BR cyclictest (8),
.BR ethtool (8),
.BR hwstamp_ctl (8)
`, date)

	fmt.Fprint(os.Stdout, manpage)
}
