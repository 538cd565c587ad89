package models

// Submission statuses derived by the result classifier.
const (
	SubmissionStatusAccepted          = "Accepted"
	SubmissionStatusWrongAnswer       = "Wrong Answer"
	SubmissionStatusRuntimeError      = "Runtime Error"
	SubmissionStatusCompileError      = "Compile Error"
	SubmissionStatusTimeLimitExceeded = "Time Limit Exceeded"
	SubmissionStatusTimedOut          = "Timed Out"
)

// ProgressStatusSolved is the only progress state; once written it is never downgraded.
const ProgressStatusSolved = "Solved"
