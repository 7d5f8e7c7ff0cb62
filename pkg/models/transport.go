package models

// DiagnosisRequest asks for a remote image to be diagnosed.
type DiagnosisRequest struct {
	URL           string `json:"url" binding:"required"`
	Heatmap       bool   `json:"heatmap,omitempty"`
	SkipLeafCheck bool   `json:"skip_leaf_check,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// TensorSpec describes one declared classifier tensor.
type TensorSpec struct {
	Name  string  `json:"name" yaml:"name"`
	Shape []int64 `json:"shape" yaml:"shape"`
	DType string  `json:"dtype" yaml:"dtype"`
	Role  string  `json:"role,omitempty" yaml:"role,omitempty"`
}

// ModelInfo is the introspected classifier contract.
type ModelInfo struct {
	Strategy  string       `json:"strategy" yaml:"strategy"`
	ModelPath string       `json:"model_path,omitempty" yaml:"model_path,omitempty"`
	Inputs    []TensorSpec `json:"inputs" yaml:"inputs"`
	Outputs   []TensorSpec `json:"outputs" yaml:"outputs"`
	Labels    []LabelInfo  `json:"labels" yaml:"labels"`
	Bound     bool         `json:"bound" yaml:"bound"`
	BindError string       `json:"bind_error,omitempty" yaml:"bind_error,omitempty"`
}
