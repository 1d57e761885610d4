package ml

import (
    "errors"
)

// Model type names accepted by LoadModel and the command line tools.
const (
    ModelSVM    = "svm"
    ModelMaxEnt = "maxent"
)

// LoadModel restores a saved classifier by type name.
func LoadModel(modelType, path string) (Model, error) {
    switch modelType {
    case ModelSVM:
        model := NewLinearSVM(SVMConfig{})
        if err := model.Load(path); err != nil {
            return nil, err
        }
        return model, nil
    case ModelMaxEnt:
        model := NewMaxEnt(MaxEntConfig{})
        if err := model.Load(path); err != nil {
            return nil, err
        }
        return model, nil
    default:
        return nil, errors.New("unsupported model type")
    }
}
