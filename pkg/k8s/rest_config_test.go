package k8s_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/devantler-tech/converge/pkg/k8s"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const multiContextKubeconfig = `apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://default.server:6443
  name: default-cluster
- cluster:
    server: https://custom.server:6443
  name: custom-cluster
contexts:
- context:
    cluster: default-cluster
    user: default-user
  name: default-context
- context:
    cluster: custom-cluster
    user: custom-user
  name: custom-context
current-context: default-context
users:
- name: default-user
  user:
    token: default-token
- name: custom-user
  user:
    token: custom-token
`

func writeKubeconfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "kubeconfig")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestBuildRESTConfig(t *testing.T) {
	t.Parallel()

	path := writeKubeconfig(t, multiContextKubeconfig)

	tests := []struct {
		name     string
		context  string
		wantHost string
	}{
		{name: "current_context", context: "", wantHost: "https://default.server:6443"},
		{name: "explicit_context", context: "custom-context", wantHost: "https://custom.server:6443"},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			config, err := k8s.BuildRESTConfig(path, testCase.context)

			require.NoError(t, err)
			assert.Equal(t, testCase.wantHost, config.Host)
		})
	}
}

func TestBuildRESTConfig_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		context string
		path    func(t *testing.T) string
	}{
		{
			name: "non_existent_path",
			path: func(*testing.T) string { return "/nonexistent/path/to/kubeconfig" },
		},
		{
			name: "invalid_content",
			path: func(t *testing.T) string {
				t.Helper()

				return writeKubeconfig(t, "this is not valid yaml {{{")
			},
		},
		{
			name:    "unknown_context",
			context: "missing-context",
			path: func(t *testing.T) string {
				t.Helper()

				return writeKubeconfig(t, multiContextKubeconfig)
			},
		},
	}

	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			config, err := k8s.BuildRESTConfig(testCase.path(t), testCase.context)

			require.Error(t, err)
			assert.Nil(t, config)
			assert.Contains(t, err.Error(), "failed to load kubeconfig")
		})
	}
}

func TestNewClientset(t *testing.T) {
	t.Parallel()

	client, err := k8s.NewClientset(writeKubeconfig(t, multiContextKubeconfig), "")

	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestDefaultKubeconfigPath(t *testing.T) {
	t.Parallel()

	assert.Equal(t, filepath.Join(".kube", "config"), filepath.Join(
		filepath.Base(filepath.Dir(k8s.DefaultKubeconfigPath())),
		filepath.Base(k8s.DefaultKubeconfigPath()),
	))
}
