package resources

import (
	"bytes"
	"context"
	"fmt"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"
)

// Apply creates every object in a multi-document YAML manifest, in order, and
// tracks each one. Supported kinds are Namespace, Deployment, ConfigMap and
// Secret. It stops at the first failure; objects created before it stay tracked.
func (c *Creator) Apply(ctx context.Context, manifest []byte) (int, error) {
	created := 0

	for index, document := range splitDocuments(manifest) {
		err := c.applyDocument(ctx, document)
		if err != nil {
			return created, fmt.Errorf("manifest document %d: %w", index, err)
		}

		created++
	}

	return created, nil
}

func (c *Creator) applyDocument(ctx context.Context, document []byte) error {
	var typeMeta metav1.TypeMeta

	err := yaml.Unmarshal(document, &typeMeta)
	if err != nil {
		return fmt.Errorf("read kind: %w", err)
	}

	switch typeMeta.Kind {
	case "Namespace":
		var namespace corev1.Namespace

		err = yaml.UnmarshalStrict(document, &namespace)
		if err != nil {
			return fmt.Errorf("decode namespace: %w", err)
		}

		_, err = c.CreateNamespace(ctx, namespace.Name)
	case "Deployment":
		var deployment appsv1.Deployment

		err = yaml.UnmarshalStrict(document, &deployment)
		if err != nil {
			return fmt.Errorf("decode deployment: %w", err)
		}

		_, err = c.CreateDeployment(ctx, &deployment)
	case "ConfigMap":
		var configMap corev1.ConfigMap

		err = yaml.UnmarshalStrict(document, &configMap)
		if err != nil {
			return fmt.Errorf("decode configmap: %w", err)
		}

		_, err = c.createConfigMap(ctx, &configMap)
	case "Secret":
		var secret corev1.Secret

		err = yaml.UnmarshalStrict(document, &secret)
		if err != nil {
			return fmt.Errorf("decode secret: %w", err)
		}

		_, err = c.createSecret(ctx, &secret)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedKind, typeMeta.Kind)
	}

	return err
}

// splitDocuments splits on "---" separator lines and drops empty documents.
func splitDocuments(manifest []byte) [][]byte {
	var documents [][]byte

	for _, document := range bytes.Split(manifest, []byte("\n---")) {
		document = bytes.TrimSpace(document)
		document = bytes.TrimPrefix(document, []byte("---"))

		if len(bytes.TrimSpace(document)) == 0 {
			continue
		}

		documents = append(documents, document)
	}

	return documents
}
