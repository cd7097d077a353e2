// Package scheduler implements chronoflow's task scheduling core: a
// 6-field cron engine, fixed-rate/fixed-delay/periodic triggers, a
// cooperative per-task execution loop, and a concurrency-gated
// scheduler with overflow queueing.
//
// There is no persistence here and none is planned — a process restart
// forgets every scheduled task.
package scheduler
