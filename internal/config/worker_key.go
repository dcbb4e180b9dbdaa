package config

type WorkerKeyStruct struct {
	PersistScoresQueue  string
	PersistReviewsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistScoresQueue:  "persist_scores_queue",
	PersistReviewsQueue: "persist_reviews_queue",
}
