package service

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(t *testing.T, init string) Options {
	t.Helper()
	return Options{
		Init:        init,
		Name:        "monitord",
		Description: "test daemon",
		ExecPath:    "/usr/local/bin/monitord",
		User:        "monitor",
		Group:       "monitor",
		WorkDir:     "/var/lib/monitord",
		RootDir:     t.TempDir(),
	}
}

func TestRegisterSystemd(t *testing.T) {
	o := testOptions(t, "systemd")
	path, err := Register(o)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(o.RootDir, "etc", "systemd", "system", "monitord.service"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "Description=test daemon")
	assert.Contains(t, content, "ExecStart=/usr/local/bin/monitord serve")
	assert.Contains(t, content, "User=monitor")
	assert.Contains(t, content, "WorkingDirectory=/var/lib/monitord")
	assert.Contains(t, content, "WantedBy=multi-user.target")
}

func TestRegisterSysvinit(t *testing.T) {
	o := testOptions(t, "sysvinit")
	path, err := Register(o)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(o.RootDir, "etc", "init.d", "monitord"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o755), info.Mode().Perm(), "init script must be executable")
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "start-stop-daemon --start")
	assert.Contains(t, string(data), "--chdir /var/lib/monitord")
}

func TestRegisterOpenrc(t *testing.T) {
	o := testOptions(t, "openrc")
	path, err := Register(o)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "#!/sbin/openrc-run")
	assert.Contains(t, content, `command="/usr/local/bin/monitord"`)
	assert.Contains(t, content, `command_user="monitor:monitor"`)
}

func TestRegisterRunit(t *testing.T) {
	o := testOptions(t, "runit")
	path, err := Register(o)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(o.RootDir, "etc", "sv", "monitord", "run"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "exec chpst -u monitor:monitor /usr/local/bin/monitord serve")
}

func TestRegisterUnknownInitIsInvalidArgument(t *testing.T) {
	o := testOptions(t, "launchd")
	_, err := Register(o)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegisterRejectsBadName(t *testing.T) {
	o := testOptions(t, "systemd")
	o.Name = "../evil"
	_, err := Register(o)
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestDefaultsFillInWithoutWorkdir(t *testing.T) {
	o := Options{Init: "systemd", ExecPath: "/bin/monitord", RootDir: t.TempDir()}
	path, err := Register(o)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, "User=root")
	assert.NotContains(t, content, "WorkingDirectory=")
}
