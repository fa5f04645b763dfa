package steps

type ShadersResult struct {
	Chunks int    `json:"chunks"`
	Out    string `json:"out"`
}

type StageResult struct {
	Staged []string `json:"staged"`
}

type CompileResult struct {
	Engine       string `json:"engine"`
	Artifact     string `json:"artifact"`
	MapFile      string `json:"mapFile,omitempty"`
	Warnings     int    `json:"warnings"`
	InputsDigest string `json:"inputsDigest"`
}

type StampResult struct {
	Version  string `json:"version"`
	Revision string `json:"revision"`
}
