package email

const (
	subjectPipelineCompletedFmt = "Transaction completed for %s"
	subjectPipelineCancelledFmt = "Transaction cancelled for %s"
)
