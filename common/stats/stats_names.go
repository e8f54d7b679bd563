package stats

/*
This file defines all the metrics being collected.   As new metrics are added please follow this pattern.
*/

const (
	/************************* Run engine metrics ***************************/
	/*
		the number of runs the executor has started
	*/
	RunsStartedCounter = "runsStartedCounter"

	/*
		the number of runs that ran to a final result (any termination reason)
	*/
	RunsDoneCounter = "runsDoneCounter"

	/*
		the number of runs that failed before producing a result (spawn or output errors)
	*/
	RunFailuresCounter = "runFailuresCounter"

	/*
		the number of runs ended by an external stop request
	*/
	RunsStoppedCounter = "runsStoppedCounter"

	/*
		the number of runs ended by the hard cpu-time limit
	*/
	RunCPUTimeLimitCounter = "cpuTimeLimitCounter"

	/*
		the number of runs ended by the soft cpu-time limit
	*/
	RunSoftCPUTimeLimitCounter = "softCpuTimeLimitCounter"

	/*
		the number of runs ended by the wall-clock limit
	*/
	RunWallTimeLimitCounter = "wallTimeLimitCounter"

	/*
		the number of runs ended by the memory limit
	*/
	RunMemoryLimitCounter = "memoryLimitCounter"

	/*
		amount of wall-clock time each run took, from spawn to reaped result
	*/
	RunLatency_ms = "runLatency_ms"

	/*
		cpu time consumed by each run as measured at its end, in milliseconds
	*/
	RunCPUTimeHistogram_ms = "runCpuTime_ms"

	/*
		peak resident memory of each run, in bytes
	*/
	RunMemoryPeakHistogram = "runMemoryPeakHistogram"

	/************************* Resource limiter metrics *********************/
	/*
		the number of runs executed without cgroup support (polling fallback only)
	*/
	CgroupUnavailableCounter = "cgroupUnavailableCounter"

	/*
		the number of cgroup teardowns that needed retries before succeeding
	*/
	CgroupReleaseRetriedCounter = "cgroupReleaseRetriedCounter"
)
