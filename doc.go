// Package wav reads and patches RIFF/WAVE containers at the chunk level.
//
// The read path walks the chunks that follow the 12 byte outer header and
// builds a ContainerSummary: the fmt chunk, the extent of the data chunk,
// the derived duration and the ids of every other chunk. Chunks may appear
// in any order and unknown chunks are skipped, so files with metadata after
// the sample data parse the same as canonical ones:
//
//	s, err := wav.SummarizeFile("take1.wav")
//	if err != nil {
//		return err
//	}
//	fmt.Println(s.Format.SampleRate, s.Data.Size, s.DurationSeconds)
//
// The write path patches 4 byte size fields in place once a streamed file is
// complete:
//
//   - PatchRIFFSize(w, v) rewrites the overall size at offset 4
//   - PatchDataSize(f, v) rewrites the data chunk size, located by walking
//   - Finalize(f) derives both values from the file length
//
// Sample data is never decoded or encoded; Encoder only frames bytes the
// caller already encoded.
package wav
