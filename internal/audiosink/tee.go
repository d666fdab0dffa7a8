package audiosink

// Tee fans a single input channel out to multiple outputs, each getting its
// own copy so one consumer mutating its slice can't corrupt another's. The
// sole reader of input is this goroutine, avoiding the competing-consumer
// problem of letting the sink and the visualizer both read the same channel.
func Tee(input <-chan []float32, outputs ...chan<- []float32) {
	go func() {
		for data := range input {
			for _, out := range outputs {
				dataCopy := make([]float32, len(data))
				copy(dataCopy, data)
				out <- dataCopy
			}
		}
		for _, out := range outputs {
			close(out)
		}
	}()
}
