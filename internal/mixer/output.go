package mixer

import (
	"context"
	"os"

	"mixer/internal/pkg/errors"
	"mixer/internal/ports"
)

// publish uploads a local file and returns the key to read it back with.
func (m *Mixer) publish(ctx context.Context, localPath, objectKey, contentType string) (ports.PutObjectOutput, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return ports.PutObjectOutput{}, errors.Wrap(err, "mixer.publish", "failed to open output")
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return ports.PutObjectOutput{}, errors.Wrap(err, "mixer.publish", "failed to stat output")
	}

	out, err := m.storage.PutObject(ctx, ports.PutObjectInput{
		ObjectKey:   objectKey,
		ContentType: contentType,
		Reader:      f,
		Size:        st.Size(),
	})
	if err != nil {
		return ports.PutObjectOutput{}, errors.WrapWithCode(err, errors.CodeUnavailable, "mixer.publish", "failed to publish output").
			WithField("object_key", objectKey).
			WithField("provider", m.storage.Provider())
	}

	m.log.FromContext(ctx).Debug("output published",
		"object_key", out.ObjectKey,
		"size", out.Size,
	)
	return out, nil
}
