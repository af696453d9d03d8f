package tasks

// TaskSchedulerInterface defines the interface for background task
// scheduling. The API layer enqueues fire-and-forget work (cache hit
// recording) here so request handlers never block on counter writes,
// and the scheduler itself enqueues periodic maintenance (cache sweeps).
// Example usage:
//
//	scheduler := NewScheduler(podcastRepo)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRecordHitsTask(upstreamIDs, podcastRepo))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}
